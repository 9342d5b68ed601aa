package pace

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/okian/wser/internal/domain/course"
	"github.com/okian/wser/internal/domain/model"
)

type aggregator struct {
	parallelism int
}

// Option configures Aggregate.
type Option func(*aggregator)

// WithParallelism splits checkpoint indices across n goroutines.
func WithParallelism(n int) Option {
	return func(a *aggregator) {
		if n > 0 {
			a.parallelism = n
		}
	}
}

// Aggregate averages cumulative and segment pace per checkpoint.
//
// Each index has its own denominator: a runner without a point at index i
// contributes to neither sum nor count there. Indices nobody reached get a
// zero-count Mean.
func Aggregate(ctx context.Context, c *course.Course, series []model.PaceSeries, opts ...Option) (model.AggregateSeries, error) {
	a := &aggregator{parallelism: 1}
	for _, opt := range opts {
		opt(a)
	}

	n := c.Len()
	points := make([]model.AggregatePoint, n)
	workers := min(a.parallelism, n)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			return accumulate(gctx, c, series, points[lo:hi], lo)
		})
	}
	if err := g.Wait(); err != nil {
		return model.AggregateSeries{}, err
	}
	return model.AggregateSeries{Runners: len(series), Points: points}, nil
}

// accumulate fills out, which holds the points for indices [lo, lo+len(out)).
func accumulate(ctx context.Context, c *course.Course, series []model.PaceSeries, out []model.AggregatePoint, lo int) error {
	hi := lo + len(out)
	cumSum := make([]float64, len(out))
	segSum := make([]float64, len(out))
	counts := make([]int, len(out))

	for r, s := range series {
		if r%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for _, p := range s {
			if p.Index < lo {
				continue
			}
			if p.Index >= hi {
				break
			}
			k := p.Index - lo
			cumSum[k] += p.CumulativePace
			segSum[k] += p.SegmentPace
			counts[k]++
		}
	}

	for k := range out {
		cp := c.At(lo + k)
		out[k] = model.AggregatePoint{Index: lo + k, Checkpoint: cp.Name, Distance: cp.Distance}
		if counts[k] == 0 {
			continue
		}
		cnt := float64(counts[k])
		out[k].CumulativePace = model.Mean{Value: cumSum[k] / cnt, Count: counts[k]}
		out[k].SegmentPace = model.Mean{Value: segSum[k] / cnt, Count: counts[k]}
	}
	return nil
}
