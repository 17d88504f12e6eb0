package aggregate

import (
	"math"
	"sort"

	"github.com/KaramelBytes/incidentlens/internal/table"
)

// ColumnProfile captures inferred kind, missingness and numeric statistics
// for one column.
type ColumnProfile struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // numeric|datetime|text|mixed|empty
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
	// Numeric stats, set when Kind is numeric
	Mean *float64 `json:"mean,omitempty"`
	Std  *float64 `json:"std,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Q25  *float64 `json:"q25,omitempty"`
	Q50  *float64 `json:"q50,omitempty"`
	Q75  *float64 `json:"q75,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// Profile is the shape of a table plus a summary per column.
type Profile struct {
	Rows    int             `json:"rows"`
	Columns []ColumnProfile `json:"columns"`
}

// Describe summarizes every column of t.
func Describe(t *table.Table) Profile {
	p := Profile{Rows: t.Len(), Columns: make([]ColumnProfile, 0, t.Width())}
	for j, name := range t.Columns() {
		cp := ColumnProfile{Name: name}
		var nums []float64
		var strs, times int
		// Welford
		var n, mean, m2 float64
		uniq := map[string]struct{}{}
		for i := 0; i < t.Len(); i++ {
			v := t.At(i, j)
			if v.IsMissing() {
				cp.Missing++
				continue
			}
			cp.NonNull++
			uniq[v.String()] = struct{}{}
			switch v.Kind() {
			case table.Number:
				x, _ := v.Float()
				nums = append(nums, x)
				n++
				delta := x - mean
				mean += delta / n
				m2 += delta * (x - mean)
			case table.Time:
				times++
			default:
				strs++
			}
		}
		cp.Unique = len(uniq)
		switch {
		case cp.NonNull == 0:
			cp.Kind = "empty"
		case len(nums) == cp.NonNull:
			cp.Kind = "numeric"
			sort.Float64s(nums)
			cp.Mean = ptr(mean)
			if n > 1 {
				cp.Std = ptr(math.Sqrt(m2 / (n - 1)))
			}
			cp.Min = ptr(nums[0])
			cp.Q25 = ptr(quantile(nums, 0.25))
			cp.Q50 = ptr(quantile(nums, 0.5))
			cp.Q75 = ptr(quantile(nums, 0.75))
			cp.Max = ptr(nums[len(nums)-1])
		case times == cp.NonNull:
			cp.Kind = "datetime"
		case strs == cp.NonNull:
			cp.Kind = "text"
		default:
			cp.Kind = "mixed"
		}
		p.Columns = append(p.Columns, cp)
	}
	return p
}

func ptr(f float64) *float64 { return &f }

// quantile interpolates linearly between closest ranks of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
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
