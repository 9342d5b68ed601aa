package model

import (
	"github.com/goccy/go-json"
)

// PacePoint is one present checkpoint of a single runner's series. Paces are
// minutes per distance unit; segment values are measured from the last
// present checkpoint, or from the start line for the first one.
type PacePoint struct {
	Index           int     `json:"index"`
	Checkpoint      string  `json:"checkpoint"`
	Distance        float64 `json:"distance"`
	Elapsed         float64 `json:"elapsed_hours"`
	SegmentDistance float64 `json:"segment_distance"`
	SegmentElapsed  float64 `json:"segment_elapsed_hours"`
	CumulativePace  float64 `json:"cumulative_pace"`
	SegmentPace     float64 `json:"segment_pace"`
}

// PaceSeries is ordered by course position and only holds present checkpoints.
type PaceSeries []PacePoint

// Empty reports whether the runner had no recorded data.
func (s PaceSeries) Empty() bool { return len(s) == 0 }

// At returns the point recorded at course index i.
func (s PaceSeries) At(i int) (PacePoint, bool) {
	for _, p := range s {
		if p.Index == i {
			return p, true
		}
		if p.Index > i {
			break
		}
	}
	return PacePoint{}, false
}

// Mean is an average together with the number of values behind it.
// Count 0 means no data; Value is then 0 by convention.
type Mean struct {
	Value float64
	Count int
}

// Valid reports whether at least one value contributed.
func (m Mean) Valid() bool { return m.Count > 0 }

type meanJSON struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// MarshalJSON renders "no data" as null.
func (m Mean) MarshalJSON() ([]byte, error) {
	if m.Count == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(meanJSON{Value: m.Value, Count: m.Count})
}

// UnmarshalJSON accepts null as "no data".
func (m *Mean) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Mean{}
		return nil
	}
	var v meanJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Mean{Value: v.Value, Count: v.Count}
	return nil
}

// AggregatePoint is the field average at one course checkpoint.
type AggregatePoint struct {
	Index          int     `json:"index"`
	Checkpoint     string  `json:"checkpoint"`
	Distance       float64 `json:"distance"`
	CumulativePace Mean    `json:"cumulative_pace"`
	SegmentPace    Mean    `json:"segment_pace"`
}

// AggregateSeries has one point per course checkpoint.
type AggregateSeries struct {
	Runners int              `json:"runners"`
	Points  []AggregatePoint `json:"points"`
}
