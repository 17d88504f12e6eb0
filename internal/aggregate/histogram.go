package aggregate

import (
	"math"

	"github.com/KaramelBytes/incidentlens/internal/table"
)

// Bin is one histogram bucket covering [Lo, Hi); the last bin also includes Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram buckets the numeric values of a column into bins equal-width
// intervals spanning the observed range. A constant column is widened by 0.5
// on each side. Missing and non-numeric values are skipped.
func Histogram(t *table.Table, col string, bins int) ([]Bin, error) {
	vals, err := column(t, "histogram", col)
	if err != nil {
		return nil, err
	}
	xs := numbers(vals)
	if len(xs) == 0 || bins <= 0 {
		return []Bin{}, nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	return bucket(xs, bins, lo, hi), nil
}

// HistogramRange buckets values into bins equal-width intervals over [lo, hi].
// Values outside the range are skipped.
func HistogramRange(t *table.Table, col string, bins int, lo, hi float64) ([]Bin, error) {
	vals, err := column(t, "histogram", col)
	if err != nil {
		return nil, err
	}
	if bins <= 0 || !(hi > lo) {
		return []Bin{}, nil
	}
	return bucket(numbers(vals), bins, lo, hi), nil
}

func numbers(vals []table.Value) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if f, ok := v.Float(); ok && !math.IsInf(f, 0) {
			out = append(out, f)
		}
	}
	return out
}

func bucket(xs []float64, bins int, lo, hi float64) []Bin {
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi
	for _, x := range xs {
		if x < lo || x > hi {
			continue
		}
		k := int((x - lo) / width)
		if k >= bins {
			k = bins - 1
		}
		out[k].Count++
	}
	return out
}
