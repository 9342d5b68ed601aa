package binning

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Summary describes a sample. Std is the sample standard deviation and is 0
// for fewer than two values.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	Max   float64 `json:"max"`
}

// Summarize computes a Summary. values is not modified.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	x := slices.Clone(values)
	slices.Sort(x)

	s := Summary{Count: len(x), Min: x[0], Max: x[len(x)-1]}
	if len(x) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(x, nil)
	} else {
		s.Mean = x[0]
	}
	s.P25 = stat.Quantile(0.25, stat.Empirical, x, nil)
	s.P50 = stat.Quantile(0.5, stat.Empirical, x, nil)
	s.P75 = stat.Quantile(0.75, stat.Empirical, x, nil)
	return s
}
