// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"

	"github.com/aarondl/opt/omit"

	"github.com/okian/wser/internal/domain/course"
	"github.com/okian/wser/internal/domain/timefmt"
	"github.com/okian/wser/internal/domain/types"
)

// ClockTime is an elapsed time as stored per split.
type ClockTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Fractional returns the elapsed time in fractional hours.
func (c ClockTime) Fractional() float64 {
	return timefmt.FromClock(c.Hours, c.Minutes, c.Seconds)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hours, c.Minutes, c.Seconds)
}

// SplitRecord is one runner's observed arrival at one checkpoint.
type SplitRecord struct {
	RunnerID   types.RunnerID
	Checkpoint string
	Time       ClockTime
	Place      int // position at the checkpoint, 0 when unknown
}

// RunnerInfo holds the demographic attributes of a runner.
type RunnerInfo struct {
	ID        types.RunnerID `json:"id"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Age       int            `json:"age"`
	Gender    types.Gender   `json:"gender"`
	Place     int            `json:"place,omitempty"`
	City      string         `json:"city,omitempty"`
	State     string         `json:"state,omitempty"`
	Country   string         `json:"country,omitempty"`
}

// FullName returns "First Last".
func (r RunnerInfo) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// RunnerProfile is a runner plus the elapsed hours at each reached checkpoint.
type RunnerProfile struct {
	Info    RunnerInfo
	Elapsed map[string]float64
}

// Aligned returns elapsed hours in course order, unset where absent.
func (p RunnerProfile) Aligned(c *course.Course) []omit.Val[float64] {
	out := make([]omit.Val[float64], c.Len())
	for i := range out {
		if h, ok := p.Elapsed[c.At(i).Name]; ok {
			out[i] = omit.From(h)
		}
	}
	return out
}

// Validate reports ErrOutOfOrder when elapsed time decreases along the course
// and ErrUnknownCheckpoint for entries the course does not define.
func (p RunnerProfile) Validate(c *course.Course) error {
	for name := range p.Elapsed {
		if _, ok := c.Index(name); !ok {
			return fmt.Errorf("%w: runner %s at %q", ErrUnknownCheckpoint, p.Info.ID, name)
		}
	}
	prevName, prev := "start", 0.0
	for i := 0; i < c.Len(); i++ {
		name := c.At(i).Name
		h, ok := p.Elapsed[name]
		if !ok {
			continue
		}
		if h < prev {
			return fmt.Errorf("%w: runner %s at %s (%.4fh) before %s (%.4fh)",
				ErrOutOfOrder, p.Info.ID, name, h, prevName, prev)
		}
		prevName, prev = name, h
	}
	return nil
}

// Finisher is the slice of runner data used by finish-time statistics.
type Finisher struct {
	ID          types.RunnerID `json:"id"`
	Age         int            `json:"age"`
	Gender      types.Gender   `json:"gender"`
	FinishHours float64        `json:"finish_hours"`
}

// RunnerFilter selects runners. Unset bounds are unbounded.
type RunnerFilter struct {
	Gender         types.Gender
	MinAge         omit.Val[int]
	MaxAge         omit.Val[int]
	MinFinishHours omit.Val[float64]
	MaxFinishHours omit.Val[float64]
	// FinishersOnly restricts to runners with a finish split.
	FinishersOnly bool
	Bibs          []types.RunnerID
}

// NeedsFinish reports whether the filter can only match finishers.
func (f RunnerFilter) NeedsFinish() bool {
	return f.FinishersOnly || f.MinFinishHours.IsValue() || f.MaxFinishHours.IsValue()
}

// MatchInfo applies the demographic part of the filter.
func (f RunnerFilter) MatchInfo(r RunnerInfo) bool {
	if !f.Gender.Matches(r.Gender) {
		return false
	}
	if v, ok := f.MinAge.Get(); ok && r.Age < v {
		return false
	}
	if v, ok := f.MaxAge.Get(); ok && r.Age > v {
		return false
	}
	if len(f.Bibs) > 0 {
		found := false
		for _, b := range f.Bibs {
			if b == r.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MatchFinish applies the finish-time part of the filter. finished is false
// for runners without a finish split.
func (f RunnerFilter) MatchFinish(hours float64, finished bool) bool {
	if !finished {
		return !f.NeedsFinish()
	}
	if v, ok := f.MinFinishHours.Get(); ok && hours < v {
		return false
	}
	if v, ok := f.MaxFinishHours.Get(); ok && hours >= v {
		return false
	}
	return true
}

// String renders the filter for logs and titles.
func (f RunnerFilter) String() string {
	parts := []string{"gender=" + f.Gender.String()}
	if v, ok := f.MinAge.Get(); ok {
		parts = append(parts, fmt.Sprintf("age>=%d", v))
	}
	if v, ok := f.MaxAge.Get(); ok {
		parts = append(parts, fmt.Sprintf("age<=%d", v))
	}
	if v, ok := f.MinFinishHours.Get(); ok {
		parts = append(parts, fmt.Sprintf("finish>=%g", v))
	}
	if v, ok := f.MaxFinishHours.Get(); ok {
		parts = append(parts, fmt.Sprintf("finish<%g", v))
	}
	if f.FinishersOnly {
		parts = append(parts, "finishers")
	}
	if len(f.Bibs) > 0 {
		parts = append(parts, fmt.Sprintf("bibs=%d", len(f.Bibs)))
	}
	return strings.Join(parts, " ")
}
