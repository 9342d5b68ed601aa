// Package pace computes single-runner pace series and field averages.
package pace

import (
	"fmt"

	"github.com/aarondl/opt/omit"

	"github.com/okian/wser/internal/domain/course"
	"github.com/okian/wser/internal/domain/model"
)

// Pace returns minutes per distance unit.
func Pace(distance, elapsedHours float64) (float64, error) {
	if distance == 0 {
		return 0, ErrZeroDistance
	}
	return 60.0 * elapsedHours / distance, nil
}

// BuildSeries turns per-checkpoint elapsed hours into a pace series.
//
// elapsed is aligned to c; unset entries are skipped and do not count as the
// previous checkpoint, so each segment spans from the last present
// checkpoint (the start line for the first one). No present entry yields an
// empty series.
func BuildSeries(c *course.Course, elapsed []omit.Val[float64]) (model.PaceSeries, error) {
	if len(elapsed) != c.Len() {
		return nil, fmt.Errorf("%w: %d values for %d checkpoints", ErrMisaligned, len(elapsed), c.Len())
	}

	var (
		series   model.PaceSeries
		prevDist float64
		prevTime float64
		prevName = "start"
	)
	for i, v := range elapsed {
		hours, ok := v.Get()
		if !ok {
			continue
		}
		cp := c.At(i)
		if hours < prevTime {
			return nil, fmt.Errorf("%w: %s (%.4fh) before %s (%.4fh)",
				model.ErrOutOfOrder, cp.Name, hours, prevName, prevTime)
		}
		cum, err := Pace(cp.Distance, hours)
		if err != nil {
			return nil, err
		}
		seg, err := Pace(cp.Distance-prevDist, hours-prevTime)
		if err != nil {
			return nil, err
		}
		series = append(series, model.PacePoint{
			Index:           i,
			Checkpoint:      cp.Name,
			Distance:        cp.Distance,
			Elapsed:         hours,
			SegmentDistance: cp.Distance - prevDist,
			SegmentElapsed:  hours - prevTime,
			CumulativePace:  cum,
			SegmentPace:     seg,
		})
		prevDist, prevTime, prevName = cp.Distance, hours, cp.Name
	}
	return series, nil
}

// BuildProfile is BuildSeries over a runner's sparse elapsed map.
func BuildProfile(c *course.Course, p model.RunnerProfile) (model.PaceSeries, error) {
	s, err := BuildSeries(c, p.Aligned(c))
	if err != nil {
		return nil, fmt.Errorf("runner %s: %w", p.Info.ID, err)
	}
	return s, nil
}
