// Package types contains small value types shared across layers.
package types

import (
	"fmt"
	"strings"
)

// RunnerID identifies a runner. Bib numbers are used as ids.
type RunnerID string

// Gender is the closed set of categories runners are grouped by.
// GenderAny is used both as the "no filter" value and for runners whose
// recorded gender is neither M nor F.
type Gender uint8

const (
	GenderAny Gender = iota
	GenderMale
	GenderFemale
)

// Genders lists the concrete categories in display order.
var Genders = []Gender{GenderFemale, GenderMale}

// ParseGender accepts M/F/male/female and any/*/"" (case-insensitive).
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return GenderMale, nil
	case "f", "female", "w":
		return GenderFemale, nil
	case "", "any", "*", "all":
		return GenderAny, nil
	default:
		return GenderAny, fmt.Errorf("unknown gender %q", s)
	}
}

// Code returns the single-letter form stored in the results data.
func (g Gender) Code() string {
	switch g {
	case GenderMale:
		return "M"
	case GenderFemale:
		return "F"
	default:
		return ""
	}
}

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "M"
	case GenderFemale:
		return "F"
	default:
		return "any"
	}
}

// Matches reports whether a runner of gender other is selected by g.
func (g Gender) Matches(other Gender) bool {
	return g == GenderAny || g == other
}

// MarshalText implements encoding.TextMarshaler.
func (g Gender) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gender) UnmarshalText(b []byte) error {
	v, err := ParseGender(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}
