package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
	"github.com/okian/wser/pkg/metrics"
)

type memRunner struct {
	info   model.RunnerInfo
	splits map[string]model.ClockTime
}

// MemStore is an in-memory Store guarded by a RWMutex.
type MemStore struct {
	cfg settings

	mu      sync.RWMutex
	runners map[types.RunnerID]*memRunner

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemStore returns an empty store. Background metrics stop with ctx or Close.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		cfg:      defaultSettings(),
		runners:  make(map[types.RunnerID]*memRunner),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&s.cfg)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemStore) startMetricsUpdater(ctx context.Context) {
	runPeriodically(ctx, &s.wg, s.stopChan, s.cfg.metricsUpdateInterval, func() {
		s.mu.RLock()
		n := len(s.runners)
		s.mu.RUnlock()
		metrics.UpdateStoreRunners(n)
	})
}

// Close stops the metrics goroutine. Later writes fail with ErrClosed.
func (s *MemStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemStore) closed() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

func observe(driver, op string, start time.Time) {
	metrics.RecordStoreQueryLatency(driver, op, float64(time.Since(start).Microseconds())/1000)
}

func (s *MemStore) Reset(_ context.Context) error {
	if s.closed() {
		return ErrClosed
	}
	s.mu.Lock()
	s.runners = make(map[types.RunnerID]*memRunner)
	s.mu.Unlock()
	metrics.UpdateStoreRunners(0)
	return nil
}

func (s *MemStore) SaveRunner(_ context.Context, info model.RunnerInfo, splits []model.SplitRecord) error {
	defer observe(DriverMemory, "save_runner", time.Now())
	if s.closed() {
		return ErrClosed
	}
	r := &memRunner{info: info, splits: make(map[string]model.ClockTime, len(splits))}
	for _, sp := range splits {
		r.splits[sp.Checkpoint] = sp.Time
	}
	s.mu.Lock()
	s.runners[info.ID] = r
	n := len(s.runners)
	s.mu.Unlock()
	metrics.UpdateStoreRunners(n)
	return nil
}

func (s *MemStore) Split(_ context.Context, checkpoint string, id types.RunnerID) (model.ClockTime, error) {
	defer observe(DriverMemory, "split", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runners[id]
	if !ok {
		return model.ClockTime{}, ErrNotFound
	}
	t, ok := r.splits[checkpoint]
	if !ok {
		return model.ClockTime{}, ErrNotFound
	}
	return t, nil
}

func (s *MemStore) finish(r *memRunner) (float64, bool) {
	t, ok := r.splits[s.cfg.finish]
	if !ok {
		return 0, false
	}
	return t.Fractional(), true
}

func (s *MemStore) RunnerIDs(ctx context.Context, filter model.RunnerFilter) ([]types.RunnerID, error) {
	defer observe(DriverMemory, "runner_ids", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	matched := make([]model.RunnerInfo, 0, len(s.runners))
	for _, r := range s.runners {
		if !filter.MatchInfo(r.info) {
			continue
		}
		h, finished := s.finish(r)
		if !filter.MatchFinish(h, finished) {
			continue
		}
		matched = append(matched, r.info)
	}
	s.mu.RUnlock()

	sortRunners(matched)
	ids := make([]types.RunnerID, len(matched))
	for i, r := range matched {
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *MemStore) RunnerInfo(_ context.Context, id types.RunnerID) (model.RunnerInfo, error) {
	defer observe(DriverMemory, "runner_info", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runners[id]
	if !ok {
		return model.RunnerInfo{}, ErrNotFound
	}
	return r.info, nil
}

func (s *MemStore) AgeRange(_ context.Context) (int, int, error) {
	defer observe(DriverMemory, "age_range", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runners) == 0 {
		return 0, 0, ErrNotFound
	}
	lo, hi, first := 0, 0, true
	for _, r := range s.runners {
		if first {
			lo, hi, first = r.info.Age, r.info.Age, false
			continue
		}
		lo = min(lo, r.info.Age)
		hi = max(hi, r.info.Age)
	}
	return lo, hi, nil
}

func (s *MemStore) CountInRange(_ context.Context, g types.Gender, lower, upper float64) (int, error) {
	defer observe(DriverMemory, "count_in_range", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.runners {
		if !g.Matches(r.info.Gender) {
			continue
		}
		if h, ok := s.finish(r); ok && h >= lower && h < upper {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) Finishers(_ context.Context, g types.Gender) ([]model.Finisher, error) {
	defer observe(DriverMemory, "finishers", time.Now())
	s.mu.RLock()
	out := make([]model.Finisher, 0, len(s.runners))
	for _, r := range s.runners {
		if !g.Matches(r.info.Gender) {
			continue
		}
		if h, ok := s.finish(r); ok {
			out = append(out, model.Finisher{ID: r.info.ID, Age: r.info.Age, Gender: r.info.Gender, FinishHours: h})
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].FinishHours != out[j].FinishHours {
			return out[i].FinishHours < out[j].FinishHours
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemStore) Search(_ context.Context, term string) ([]model.RunnerInfo, error) {
	defer observe(DriverMemory, "search", time.Now())
	q, err := parseSearch(term)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []model.RunnerInfo
	for _, r := range s.runners {
		if q.match(r.info) {
			out = append(out, r.info)
		}
	}
	s.mu.RUnlock()
	sortRunners(out)
	return out, nil
}

func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runners), nil
}

// sortRunners orders by overall place, unplaced runners last, then by bib.
func sortRunners(rs []model.RunnerInfo) {
	sort.Slice(rs, func(i, j int) bool {
		pi, pj := rs[i].Place, rs[j].Place
		if (pi == 0) != (pj == 0) {
			return pj == 0
		}
		if pi != pj {
			return pi < pj
		}
		return lessID(rs[i].ID, rs[j].ID)
	})
}

// lessID compares bibs numerically when both are numeric.
func lessID(a, b types.RunnerID) bool {
	if isDigits(string(a)) && isDigits(string(b)) && len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
