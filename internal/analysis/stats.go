package analysis

import (
	"math"
	"sort"
)

// Summary holds describe-style statistics for one numeric column.
type Summary struct {
	Count int     `json:"count" yaml:"count"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Std   float64 `json:"std" yaml:"std"`
	Min   float64 `json:"min" yaml:"min"`
	Q25   float64 `json:"q25" yaml:"q25"`
	Q50   float64 `json:"q50" yaml:"q50"`
	Q75   float64 `json:"q75" yaml:"q75"`
	Max   float64 `json:"max" yaml:"max"`
}

// Describe computes a Summary over vals, which must already exclude missing
// values. Std is the sample standard deviation (n-1); it is 0 for fewer than
// two values. An empty input yields a zero Summary.
func Describe(vals []float64) Summary {
	if len(vals) == 0 {
		return Summary{}
	}
	mean, m2 := welford(vals)
	s := Summary{Count: len(vals), Mean: mean}
	if len(vals) > 1 {
		s.Std = math.Sqrt(m2 / float64(len(vals)-1))
	}
	sorted := sortedCopy(vals)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q25 = Quantile(sorted, 0.25)
	s.Q50 = Quantile(sorted, 0.5)
	s.Q75 = Quantile(sorted, 0.75)
	return s
}

// Moments returns the mean and the population standard deviation (n) of vals.
func Moments(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	mean, m2 := welford(vals)
	return mean, math.Sqrt(m2 / float64(len(vals)))
}

// Median returns the median of vals and false when vals is empty.
func Median(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	return Quantile(sortedCopy(vals), 0.5), true
}

func welford(vals []float64) (mean, m2 float64) {
	for i, x := range vals {
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}
	return mean, m2
}

func sortedCopy(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

// Quantile interpolates linearly between the closest ranks of sorted.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
