// Package service wires the store, the profile cache and the pacing engine
// into the analysis operations used by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/okian/wser/internal/adapters/cache"
	"github.com/okian/wser/internal/adapters/repository"
	"github.com/okian/wser/internal/domain/course"
	"github.com/okian/wser/internal/domain/timefmt"
	"github.com/okian/wser/internal/ingest"
	"github.com/okian/wser/pkg/logger"
	"github.com/okian/wser/pkg/metrics"
)

// Service implements the analysis operations over an injected store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	ownsStore bool
	profiles  cache.ProfileCache
	ownsCache bool
	course    *course.Course
	dnf       *timefmt.Normalizer

	// Configuration
	storeDriver  string
	storeDSN     string
	fetchWorkers int
	parallelism  int
	cacheSize    int
	ingestStrict bool

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects the store. The caller keeps ownership and closes it.
func WithStore(st repository.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithStoreDriver makes Start open a store of driver at dsn.
func WithStoreDriver(driver, dsn string) Option {
	return func(s *Service) {
		s.storeDriver = driver
		s.storeDSN = dsn
	}
}

// WithCourse sets the checkpoint definition. Default is Western States.
func WithCourse(c *course.Course) Option {
	return func(s *Service) {
		if c != nil {
			s.course = c
		}
	}
}

// WithFetchWorkers bounds concurrent store reads when building a field.
func WithFetchWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchWorkers = n
		}
	}
}

// WithAggregateParallelism sets how many goroutines share the checkpoints
// of one aggregation.
func WithAggregateParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithProfileCacheSize bounds the profile cache; 0 disables it.
func WithProfileCacheSize(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.cacheSize = n
		}
	}
}

// WithProfileCache injects a cache instead of building one in Start.
func WithProfileCache(c cache.ProfileCache) Option {
	return func(s *Service) { s.profiles = c }
}

// WithDNFPolicy sets how missing finish times count in field summaries.
func WithDNFPolicy(p timefmt.Policy, defaultHours float64) Option {
	return func(s *Service) {
		s.dnf = timefmt.New(timefmt.WithPolicy(p), timefmt.WithDefaultHours(defaultHours))
	}
}

// WithIngestStrict aborts ingestion on the first bad row.
func WithIngestStrict(strict bool) Option {
	return func(s *Service) { s.ingestStrict = strict }
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		course:       course.Default(),
		dnf:          timefmt.New(),
		storeDriver:  repository.DriverMemory,
		fetchWorkers: runtime.NumCPU() * 2,
		parallelism:  1,
		cacheSize:    1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and cache unless they were injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.store == nil {
		st, err := repository.Open(ctx, s.storeDriver, s.storeDSN,
			repository.WithFinishCheckpoint(s.course.Finish().Name))
		if err != nil {
			metrics.RecordErrorByComponent("service", "store_open")
			return fmt.Errorf("open store: %w", err)
		}
		s.store, s.ownsStore = st, true
	}
	if s.profiles == nil {
		c, err := cache.New(s.cacheSize)
		if err != nil {
			return err
		}
		s.profiles, s.ownsCache = c, true
	}

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.String("store", s.storeDriver),
		logger.Int("checkpoints", s.course.Len()),
		logger.Int("fetchWorkers", s.fetchWorkers),
		logger.Int("parallelism", s.parallelism),
		logger.Int("profileCache", s.cacheSize),
		logger.Any("dnfPolicy", s.dnf.Policy()),
		logger.Bool("ingestStrict", s.ingestStrict),
	)
	return nil
}

// Stop releases what Start opened.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.ownsCache && s.profiles != nil {
		s.profiles.Close()
		s.profiles, s.ownsCache = nil, false
	}
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store", logger.Error(err))
		}
		s.store, s.ownsStore = nil, false
	}
	s.started = false
	s.logger.Info(context.Background(), "analysis service stopped")
}

// Course returns the checkpoint definition in use.
func (s *Service) Course() *course.Course { return s.course }

func (s *Service) deps() (repository.Store, cache.ProfileCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.profiles, nil
}

// Ingest replaces the store contents with the results CSV in r.
func (s *Service) Ingest(ctx context.Context, r io.Reader) (ingest.Report, error) {
	st, pc, err := s.deps()
	if err != nil {
		return ingest.Report{}, err
	}
	l := ingest.New(
		ingest.WithCourse(s.course),
		ingest.WithStrict(s.ingestStrict),
		ingest.WithLogger(s.logger.Named("ingest")),
	)
	rep, err := l.Load(ctx, r, st)
	// a failed save may have reset the store; drop profiles of the old contents
	pc.Clear()
	return rep, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"store":        s.storeDriver,
		"checkpoints":  s.course.Len(),
		"distance":     s.course.Finish().Distance,
		"fetchWorkers": s.fetchWorkers,
		"parallelism":  s.parallelism,
		"profileCache": s.cacheSize,
		"dnfPolicy":    s.dnf.Policy().String(),
	}
	if s.started {
		if n, err := s.store.Count(context.Background()); err == nil {
			stats["runners"] = n
			metrics.UpdateStoreRunners(n)
		}
	}
	return stats
}
