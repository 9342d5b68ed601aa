// Package course defines the ordered checkpoints of a race course.
package course

import (
	"fmt"
	"strings"
)

// Checkpoint is a named location with a fixed distance from the start line.
type Checkpoint struct {
	Name     string  `json:"name" koanf:"name"`
	Distance float64 `json:"distance" koanf:"distance"`
}

// Course is an immutable, validated checkpoint sequence. The start line at
// distance 0 is implicit and never part of the sequence.
type Course struct {
	checkpoints []Checkpoint
	index       map[string]int
}

// New validates cps and returns a Course holding a private copy.
// Names must be unique and non-empty; distances strictly increasing and > 0.
func New(cps []Checkpoint) (*Course, error) {
	if len(cps) == 0 {
		return nil, fmt.Errorf("%w: no checkpoints", ErrInvalidCourse)
	}
	c := &Course{
		checkpoints: make([]Checkpoint, len(cps)),
		index:       make(map[string]int, len(cps)),
	}
	prev := 0.0
	for i, cp := range cps {
		name := strings.TrimSpace(cp.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: checkpoint %d has no name", ErrInvalidCourse, i)
		}
		if _, dup := c.index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate checkpoint %q", ErrInvalidCourse, name)
		}
		if cp.Distance <= prev {
			return nil, fmt.Errorf("%w: %q at %.2f is not beyond %.2f",
				ErrInvalidCourse, name, cp.Distance, prev)
		}
		prev = cp.Distance
		c.checkpoints[i] = Checkpoint{Name: name, Distance: cp.Distance}
		c.index[name] = i
	}
	return c, nil
}

// MustNew is New for package-level course literals.
func MustNew(cps []Checkpoint) *Course {
	c, err := New(cps)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of checkpoints.
func (c *Course) Len() int { return len(c.checkpoints) }

// At returns the i-th checkpoint in course order.
func (c *Course) At(i int) Checkpoint { return c.checkpoints[i] }

// Index returns the position of the named checkpoint.
func (c *Course) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Checkpoints returns a copy of the checkpoint sequence.
func (c *Course) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, len(c.checkpoints))
	copy(out, c.checkpoints)
	return out
}

// Names returns checkpoint names in course order.
func (c *Course) Names() []string {
	out := make([]string, len(c.checkpoints))
	for i, cp := range c.checkpoints {
		out[i] = cp.Name
	}
	return out
}

// Distances returns checkpoint distances in course order.
func (c *Course) Distances() []float64 {
	out := make([]float64, len(c.checkpoints))
	for i, cp := range c.checkpoints {
		out[i] = cp.Distance
	}
	return out
}

// Finish returns the last checkpoint.
func (c *Course) Finish() Checkpoint { return c.checkpoints[len(c.checkpoints)-1] }
