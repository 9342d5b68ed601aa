// Package binning groups finish times into fixed or computed bins.
package binning

import (
	"fmt"
	"math"
	"strconv"

	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
)

// Bin is the half-open interval [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Label string  `json:"label"`
}

// Contains reports whether v falls inside the bin.
func (b Bin) Contains(v float64) bool {
	return v >= b.Lower && v < b.Upper
}

// FixedBins builds len(edges)-1 bins labelled "{lower}-{upper}".
func FixedBins(edges []float64) ([]Bin, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("%w: need at least two edges, got %d", ErrInvalidEdges, len(edges))
	}
	bins := make([]Bin, 0, len(edges)-1)
	for i := 1; i < len(edges); i++ {
		lo, hi := edges[i-1], edges[i]
		if math.IsNaN(lo) || math.IsNaN(hi) || hi <= lo {
			return nil, fmt.Errorf("%w: %v is not strictly increasing", ErrInvalidEdges, edges)
		}
		bins = append(bins, Bin{Lower: lo, Upper: hi, Label: num(lo) + "-" + num(hi)})
	}
	return bins, nil
}

// MaxAgeBins bounds the bin count accepted by AgeBins.
const MaxAgeBins = 100

// AgeWidth returns ceil((max-min)/n), never below 1.
func AgeWidth(n, minAge, maxAge int) int {
	w := (maxAge - minAge + n - 1) / n
	return max(w, 1)
}

// AgeBins covers [minAge, maxAge] with integer bins of AgeWidth, starting at
// minAge - floor(width/2). At least n bins are produced and more are added
// until the last upper edge exceeds maxAge. Labels are "{lower}-{upper-1}".
func AgeBins(n, minAge, maxAge int) ([]Bin, error) {
	if n < 1 || n > MaxAgeBins {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidBinCount, n, MaxAgeBins)
	}
	if maxAge < minAge {
		return nil, fmt.Errorf("%w: age range %d..%d", ErrInvalidEdges, minAge, maxAge)
	}
	w := AgeWidth(n, minAge, maxAge)
	lo := minAge - w/2
	var bins []Bin
	for len(bins) < n || lo <= maxAge {
		hi := lo + w
		bins = append(bins, Bin{
			Lower: float64(lo),
			Upper: float64(hi),
			Label: strconv.Itoa(lo) + "-" + strconv.Itoa(hi-1),
		})
		lo = hi
	}
	return bins, nil
}

// Count returns how many values fall in each bin. Values outside every bin
// are dropped, not clamped.
func Count(bins []Bin, values []float64) []int {
	counts := make([]int, len(bins))
	for _, v := range values {
		if i := Locate(bins, v); i >= 0 {
			counts[i]++
		}
	}
	return counts
}

// MeanByBin averages values[i] into the bin holding keys[i]. Bins nobody
// falls into get Mean{Value: 0, Count: 0}.
func MeanByBin(bins []Bin, keys, values []float64) []model.Mean {
	sums := make([]float64, len(bins))
	out := make([]model.Mean, len(bins))
	for i, k := range keys {
		if b := Locate(bins, k); b >= 0 {
			sums[b] += values[i]
			out[b].Count++
		}
	}
	for i := range out {
		if out[i].Count > 0 {
			out[i].Value = sums[i] / float64(out[i].Count)
		}
	}
	return out
}

// Locate returns the index of the bin containing v, or -1.
func Locate(bins []Bin, v float64) int {
	lo, hi := 0, len(bins)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case v < bins[mid].Lower:
			hi = mid
		case v >= bins[mid].Upper:
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// Labels returns the bin labels in order.
func Labels(bins []Bin) []string {
	out := make([]string, len(bins))
	for i, b := range bins {
		out[i] = b.Label
	}
	return out
}

// Series holds one category's values across the bins of a Distribution.
// Counts is set for fixed finish bins, Means for age bins.
type Series struct {
	Gender types.Gender `json:"gender"`
	Counts []int        `json:"counts,omitempty"`
	Means  []model.Mean `json:"means,omitempty"`
}

// Distribution is a binned statistic split by gender.
type Distribution struct {
	Kind   string   `json:"kind"`
	Bins   []Bin    `json:"bins"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// For returns the series of gender g.
func (d Distribution) For(g types.Gender) (Series, bool) {
	for _, s := range d.Series {
		if s.Gender == g {
			return s, true
		}
	}
	return Series{}, false
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
