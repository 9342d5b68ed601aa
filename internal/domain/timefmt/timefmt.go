// Package timefmt turns raw result-sheet clock strings into fractional hours.
package timefmt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultImputeHours is the finish time assumed for non-finishers under PolicyImpute.
const DefaultImputeHours = 30.0

// Policy decides what a "no data" or DNF marker turns into.
type Policy uint8

const (
	// PolicyAbsent reports markers as absent. Used for descriptive statistics.
	PolicyAbsent Policy = iota
	// PolicyImpute replaces markers with a default number of hours.
	PolicyImpute
)

// ParsePolicy accepts "absent" and "impute".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "absent":
		return PolicyAbsent, nil
	case "impute":
		return PolicyImpute, nil
	}
	return PolicyAbsent, fmt.Errorf("unknown policy %q", s)
}

func (p Policy) String() string {
	if p == PolicyImpute {
		return "impute"
	}
	return "absent"
}

// Result is a normalized time. Present is false for absent markers.
type Result struct {
	Hours   float64
	Present bool
	Imputed bool
}

// Normalizer converts raw strings according to a Policy.
type Normalizer struct {
	policy       Policy
	defaultHours float64
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithPolicy sets the marker policy.
func WithPolicy(p Policy) Option {
	return func(n *Normalizer) { n.policy = p }
}

// WithDefaultHours sets the value imputed for markers under PolicyImpute.
func WithDefaultHours(h float64) Option {
	return func(n *Normalizer) {
		if h > 0 {
			n.defaultHours = h
		}
	}
}

// New returns a Normalizer. The zero configuration reports markers as absent.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{policy: PolicyAbsent, defaultHours: DefaultImputeHours}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Policy returns the configured policy.
func (n *Normalizer) Policy() Policy { return n.policy }

// Normalize parses raw. Malformed input returns an error wrapping ErrFormat.
func (n *Normalizer) Normalize(raw string) (Result, error) {
	s := clean(raw)
	if isMarker(s) {
		if n.policy == PolicyImpute {
			return Result{Hours: n.defaultHours, Present: true, Imputed: true}, nil
		}
		return Result{}, nil
	}
	h, m, sec, err := split(s)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q: %w", ErrFormat, raw, err)
	}
	return Result{Hours: FromClock(h, m, sec), Present: true}, nil
}

// Clock parses raw into its integer components. Markers return ok=false.
func (n *Normalizer) Clock(raw string) (h, m, s int, ok bool, err error) {
	c := clean(raw)
	if isMarker(c) {
		return 0, 0, 0, false, nil
	}
	h, m, s, err = split(c)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("%w: %q: %w", ErrFormat, raw, err)
	}
	return h, m, s, true, nil
}

// FromClock returns h + m/60 + s/3600.
func FromClock(h, m, s int) float64 {
	return float64(h) + float64(m)/60 + float64(s)/3600
}

// clean drops a leading date token and anything after the clock token.
func clean(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) > 0 && strings.Contains(fields[0], "/") {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isMarker(s string) bool {
	if s == "" || strings.EqualFold(s, "nan") {
		return true
	}
	// covers "--:--" as well as DNF/DNS dashes
	return strings.ContainsAny(s, "-–—")
}

func split(s string) (h, m, sec int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("want hh:mm:ss, got %d components", len(parts))
	}
	var v [3]int
	for i, p := range parts {
		n, perr := strconv.Atoi(p)
		if perr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("component %d is not a non-negative integer", i)
		}
		v[i] = n
	}
	if v[1] >= 60 || v[2] >= 60 {
		return 0, 0, 0, fmt.Errorf("minutes and seconds must be below 60")
	}
	return v[0], v[1], v[2], nil
}
