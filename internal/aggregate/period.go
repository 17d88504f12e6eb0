package aggregate

import (
	"sort"
	"time"

	"github.com/KaramelBytes/incidentlens/internal/table"
)

// PeriodCount is the number of incidents in one (year, month).
type PeriodCount struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Date      time.Time `json:"date"`
	Incidents int       `json:"incidents"`
}

// ByPeriod groups rows by year and month. Rows missing either key are not
// part of any group. The result is ordered by Date.
func ByPeriod(t *table.Table, yearCol, monthCol string) ([]PeriodCount, error) {
	years, err := column(t, "group by period", yearCol)
	if err != nil {
		return nil, err
	}
	months, err := column(t, "group by period", monthCol)
	if err != nil {
		return nil, err
	}
	type key struct{ y, m int }
	counts := map[key]int{}
	for i := range years {
		y, ok := years[i].Float()
		if !ok {
			continue
		}
		m, ok := months[i].Float()
		if !ok || m < 1 || m > 12 {
			continue
		}
		counts[key{int(y), int(m)}]++
	}
	out := make([]PeriodCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, PeriodCount{
			Year:      k.y,
			Month:     k.m,
			Date:      time.Date(k.y, time.Month(k.m), 1, 0, 0, 0, 0, time.UTC),
			Incidents: n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// HeatMatrix is a year by month grid of incident counts.
type HeatMatrix struct {
	Years  []int   `json:"years"`
	Months []int   `json:"months"`
	Cells  [][]int `json:"cells"` // Cells[yearIdx][monthIdx]
}

// Reshape pivots period counts into a HeatMatrix. Rows and columns are the
// observed years and months in ascending order; absent cells are zero.
func Reshape(periods []PeriodCount) HeatMatrix {
	ys := map[int]bool{}
	ms := map[int]bool{}
	for _, p := range periods {
		ys[p.Year] = true
		ms[p.Month] = true
	}
	hm := HeatMatrix{Years: sortedInts(ys), Months: sortedInts(ms)}
	yi := indexOf(hm.Years)
	mi := indexOf(hm.Months)
	hm.Cells = make([][]int, len(hm.Years))
	for i := range hm.Cells {
		hm.Cells[i] = make([]int, len(hm.Months))
	}
	for _, p := range periods {
		hm.Cells[yi[p.Year]][mi[p.Month]] += p.Incidents
	}
	return hm
}

// Cell returns the count for (year, month), zero when absent.
func (h HeatMatrix) Cell(year, month int) int {
	for i, y := range h.Years {
		if y != year {
			continue
		}
		for j, m := range h.Months {
			if m == month {
				return h.Cells[i][j]
			}
		}
	}
	return 0
}

// Total sums every cell.
func (h HeatMatrix) Total() int {
	n := 0
	for _, row := range h.Cells {
		for _, c := range row {
			n += c
		}
	}
	return n
}

func sortedInts(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func indexOf(xs []int) map[int]int {
	m := make(map[int]int, len(xs))
	for i, x := range xs {
		m[x] = i
	}
	return m
}
