package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/wser/internal/adapters/repository"
	"github.com/okian/wser/internal/domain/binning"
	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/pace"
	"github.com/okian/wser/internal/domain/types"
	"github.com/okian/wser/pkg/logger"
	"github.com/okian/wser/pkg/metrics"
)

// RunnerPace is a runner together with their pace series.
type RunnerPace struct {
	Runner model.RunnerInfo `json:"runner"`
	Series model.PaceSeries `json:"series"`
}

// Comparison holds two runners side by side.
type Comparison struct {
	A RunnerPace `json:"a"`
	B RunnerPace `json:"b"`
}

// FieldComparison holds one runner against the average of a field.
type FieldComparison struct {
	Runner RunnerPace            `json:"runner"`
	Filter string                `json:"filter"`
	Field  model.AggregateSeries `json:"field"`
}

// FieldSummary describes a filtered field. Finish covers finishers, plus
// non-finishers at the imputed time when the DNF policy imputes.
type FieldSummary struct {
	Filter    string          `json:"filter"`
	Runners   int             `json:"runners"`
	Finishers int             `json:"finishers"`
	Imputed   int             `json:"imputed"`
	Age       binning.Summary `json:"age"`
	Finish    binning.Summary `json:"finish_hours"`
}

func since(op string, start time.Time) {
	metrics.RecordAnalysisLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// Runner returns the runner with id.
func (s *Service) Runner(ctx context.Context, id types.RunnerID) (model.RunnerInfo, error) {
	st, _, err := s.deps()
	if err != nil {
		return model.RunnerInfo{}, err
	}
	return st.RunnerInfo(ctx, id)
}

// FindRunner searches by bib, "first last", or a single first or last name.
func (s *Service) FindRunner(ctx context.Context, term string) ([]model.RunnerInfo, error) {
	st, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	found, err := st.Search(ctx, term)
	if errors.Is(err, repository.ErrEmptySearch) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		metrics.RecordEmptyResult("find_runner")
		return nil, fmt.Errorf("%w: %q", ErrEmptyResult, term)
	}
	return found, nil
}

// resolve picks the best-placed runner matching term.
func (s *Service) resolve(ctx context.Context, term string) (model.RunnerInfo, error) {
	found, err := s.FindRunner(ctx, term)
	if err != nil {
		return model.RunnerInfo{}, err
	}
	return found[0], nil
}

// BuildProfile returns the pace series of one runner. A runner without any
// split yields an empty series and no error; an unknown runner returns
// repository.ErrNotFound.
func (s *Service) BuildProfile(ctx context.Context, id types.RunnerID) (model.PaceSeries, error) {
	defer since("build_profile", time.Now())
	st, pc, err := s.deps()
	if err != nil {
		return nil, err
	}
	if series, ok := pc.Get(ctx, id); ok {
		return series, nil
	}

	info, err := st.RunnerInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("runner %s: %w", id, err)
	}
	profile := model.RunnerProfile{Info: info, Elapsed: make(map[string]float64, s.course.Len())}
	for _, cp := range s.course.Checkpoints() {
		t, err := st.Split(ctx, cp.Name, id)
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordMissingCheckpoint()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("split %s/%s: %w", id, cp.Name, err)
		}
		profile.Elapsed[cp.Name] = t.Fractional()
	}

	series, err := pace.BuildProfile(s.course, profile)
	if err != nil {
		if errors.Is(err, model.ErrOutOfOrder) {
			metrics.RecordErrorByComponent("service", "data_quality")
		}
		return nil, err
	}
	metrics.RecordProfileBuilt(series.Empty())
	pc.Set(ctx, id, series)
	return series, nil
}

// fieldProfiles builds the series of every id, fanning out over fetchWorkers.
// Runners with out-of-order data are logged and left out.
func (s *Service) fieldProfiles(ctx context.Context, ids []types.RunnerID) ([]model.PaceSeries, error) {
	results := make([]model.PaceSeries, len(ids))
	bad := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchWorkers)
	for i, id := range ids {
		g.Go(func() error {
			series, err := s.BuildProfile(gctx, id)
			if errors.Is(err, model.ErrOutOfOrder) {
				s.logger.Warn(gctx, "runner left out of field", logger.String("runner", string(id)), logger.Error(err))
				bad[i] = true
				return nil
			}
			results[i] = series
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results[:0]
	for i, series := range results {
		if !bad[i] {
			out = append(out, series)
		}
	}
	return out, nil
}

// AggregateField averages the pace of runners per checkpoint.
func (s *Service) AggregateField(ctx context.Context, ids []types.RunnerID) (model.AggregateSeries, error) {
	defer since("aggregate_field", time.Now())
	if len(ids) == 0 {
		metrics.RecordEmptyResult("aggregate_field")
		return model.AggregateSeries{}, ErrEmptyResult
	}
	field, err := s.fieldProfiles(ctx, ids)
	if err != nil {
		return model.AggregateSeries{}, err
	}
	agg, err := pace.Aggregate(ctx, s.course, field, pace.WithParallelism(s.parallelism))
	if err != nil {
		return model.AggregateSeries{}, err
	}
	metrics.RecordAggregation(agg.Runners)
	return agg, nil
}

// FieldPace aggregates every runner matching filter.
func (s *Service) FieldPace(ctx context.Context, filter model.RunnerFilter) (model.AggregateSeries, error) {
	st, _, err := s.deps()
	if err != nil {
		return model.AggregateSeries{}, err
	}
	ids, err := st.RunnerIDs(ctx, filter)
	if err != nil {
		return model.AggregateSeries{}, err
	}
	if len(ids) == 0 {
		metrics.RecordEmptyResult("field_pace")
		return model.AggregateSeries{}, fmt.Errorf("%w: %s", ErrEmptyResult, filter)
	}
	return s.AggregateField(ctx, ids)
}

func (s *Service) runnerPace(ctx context.Context, term string) (RunnerPace, error) {
	info, err := s.resolve(ctx, term)
	if err != nil {
		return RunnerPace{}, err
	}
	series, err := s.BuildProfile(ctx, info.ID)
	if err != nil {
		return RunnerPace{}, err
	}
	return RunnerPace{Runner: info, Series: series}, nil
}

// CompareRunners builds the profiles of two runners found by search term.
func (s *Service) CompareRunners(ctx context.Context, a, b string) (Comparison, error) {
	defer since("compare_runners", time.Now())
	var cmp Comparison
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cmp.A, err = s.runnerPace(gctx, a)
		return err
	})
	g.Go(func() (err error) {
		cmp.B, err = s.runnerPace(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}
	return cmp, nil
}

// CompareToField puts one runner next to the average of filter.
func (s *Service) CompareToField(ctx context.Context, term string, filter model.RunnerFilter) (FieldComparison, error) {
	defer since("compare_to_field", time.Now())
	rp, err := s.runnerPace(ctx, term)
	if err != nil {
		return FieldComparison{}, err
	}
	field, err := s.FieldPace(ctx, filter)
	if err != nil {
		return FieldComparison{}, err
	}
	return FieldComparison{Runner: rp, Filter: filter.String(), Field: field}, nil
}

// BinByFixedEdges counts finishers per finish-time bin. GenderAny yields
// one series per concrete gender.
func (s *Service) BinByFixedEdges(ctx context.Context, edges []float64, g types.Gender) (binning.Distribution, error) {
	defer since("bin_fixed", time.Now())
	st, _, err := s.deps()
	if err != nil {
		return binning.Distribution{}, err
	}
	bins, err := binning.FixedBins(edges)
	if err != nil {
		return binning.Distribution{}, fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}
	metrics.RecordBinning("finish")

	d := binning.Distribution{Kind: "finish", Bins: bins, Labels: binning.Labels(bins)}
	for _, gender := range categories(g) {
		counts := make([]int, len(bins))
		for i, b := range bins {
			if counts[i], err = st.CountInRange(ctx, gender, b.Lower, b.Upper); err != nil {
				return binning.Distribution{}, err
			}
		}
		d.Series = append(d.Series, binning.Series{Gender: gender, Counts: counts})
	}
	return d, nil
}

// BinByComputedAge averages finish time per computed age bin. Bins without
// finishers report Mean{Value: 0, Count: 0}.
func (s *Service) BinByComputedAge(ctx context.Context, n int, g types.Gender) (binning.Distribution, error) {
	defer since("bin_age", time.Now())
	st, _, err := s.deps()
	if err != nil {
		return binning.Distribution{}, err
	}
	lo, hi, err := st.AgeRange(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordEmptyResult("bin_age")
		return binning.Distribution{}, ErrEmptyResult
	}
	if err != nil {
		return binning.Distribution{}, err
	}
	bins, err := binning.AgeBins(n, lo, hi)
	if err != nil {
		return binning.Distribution{}, fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}
	metrics.RecordBinning("age")

	d := binning.Distribution{Kind: "age", Bins: bins, Labels: binning.Labels(bins)}
	for _, gender := range categories(g) {
		fin, err := st.Finishers(ctx, gender)
		if err != nil {
			return binning.Distribution{}, err
		}
		ages := make([]float64, len(fin))
		hours := make([]float64, len(fin))
		for i, f := range fin {
			ages[i], hours[i] = float64(f.Age), f.FinishHours
		}
		d.Series = append(d.Series, binning.Series{Gender: gender, Means: binning.MeanByBin(bins, ages, hours)})
	}
	return d, nil
}

// SummarizeField describes ages and finish times of the runners in filter.
func (s *Service) SummarizeField(ctx context.Context, filter model.RunnerFilter) (FieldSummary, error) {
	defer since("summarize_field", time.Now())
	st, _, err := s.deps()
	if err != nil {
		return FieldSummary{}, err
	}
	ids, err := st.RunnerIDs(ctx, filter)
	if err != nil {
		return FieldSummary{}, err
	}
	if len(ids) == 0 {
		metrics.RecordEmptyResult("summarize_field")
		return FieldSummary{}, fmt.Errorf("%w: %s", ErrEmptyResult, filter)
	}

	ages := make([]float64, len(ids))
	finish := make([]float64, len(ids))
	present := make([]bool, len(ids))
	imputed := make([]bool, len(ids))
	finishName := s.course.Finish().Name

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchWorkers)
	for i, id := range ids {
		g.Go(func() error {
			info, err := st.RunnerInfo(gctx, id)
			if err != nil {
				return err
			}
			ages[i] = float64(info.Age)
			t, err := st.Split(gctx, finishName, id)
			switch {
			case err == nil:
				finish[i], present[i] = t.Fractional(), true
			case errors.Is(err, repository.ErrNotFound):
				// no finish split reads like a DNF marker
				r, _ := s.dnf.Normalize("")
				finish[i], present[i], imputed[i] = r.Hours, r.Present, r.Imputed
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FieldSummary{}, err
	}

	sum := FieldSummary{Filter: filter.String(), Runners: len(ids), Age: binning.Summarize(ages)}
	var hours []float64
	for i := range ids {
		if !present[i] {
			continue
		}
		hours = append(hours, finish[i])
		if imputed[i] {
			sum.Imputed++
		} else {
			sum.Finishers++
		}
	}
	sum.Finish = binning.Summarize(hours)
	return sum, nil
}

func categories(g types.Gender) []types.Gender {
	if g == types.GenderAny {
		return types.Genders
	}
	return []types.Gender{g}
}
