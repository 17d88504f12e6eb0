package aggregate

import (
	"encoding/json"
	"math"

	"github.com/KaramelBytes/incidentlens/internal/table"
)

// Matrix is a symmetric statistic over numeric columns. Undefined entries
// (fewer than two complete pairs, or a zero-variance column for correlation)
// hold NaN, report false from Defined and serialize as null.
type Matrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Defined reports whether entry (i, j) carries a value.
func (m Matrix) Defined(i, j int) bool { return !math.IsNaN(m.Values[i][j]) }

// Get returns the entry for two column names.
func (m Matrix) Get(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 || !m.Defined(ia, ib) {
		return 0, false
	}
	return m.Values[ia][ib], true
}

func (m Matrix) MarshalJSON() ([]byte, error) {
	vals := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]*float64, len(row))
		for j := range row {
			if m.Defined(i, j) {
				v := row[j]
				vals[i][j] = &v
			}
		}
	}
	cols := m.Columns
	if cols == nil {
		cols = []string{}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{cols, vals})
}

// NumericColumns returns the columns holding at least one Number and no
// String or Time values, in table order.
func NumericColumns(t *table.Table) []string {
	var out []string
	for j, name := range t.Columns() {
		nums, other := 0, 0
		for i := 0; i < t.Len(); i++ {
			switch t.At(i, j).Kind() {
			case table.Number:
				nums++
			case table.String, table.Time:
				other++
			}
		}
		if nums > 0 && other == 0 {
			out = append(out, name)
		}
	}
	return out
}

// pairAcc accumulates co-moments over pairwise-complete observations using
// Welford-style updates.
type pairAcc struct {
	n     float64
	meanX float64
	meanY float64
	m2X   float64
	m2Y   float64
	cXY   float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	dx := x - p.meanX
	p.meanX += dx / p.n
	dy := y - p.meanY
	p.meanY += dy / p.n
	p.m2X += dx * (x - p.meanX)
	p.m2Y += dy * (y - p.meanY)
	p.cXY += dx * (y - p.meanY)
}

func (p *pairAcc) covariance() float64 {
	if p.n < 2 {
		return math.NaN()
	}
	return p.cXY / (p.n - 1)
}

func (p *pairAcc) correlation() float64 {
	if p.n < 2 || p.m2X <= 0 || p.m2Y <= 0 {
		return math.NaN()
	}
	r := p.cXY / math.Sqrt(p.m2X*p.m2Y)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// pairwise walks every numeric column pair once. For each pair only rows
// where both values are present contribute.
func pairwise(t *table.Table, stat func(*pairAcc) float64) Matrix {
	cols := NumericColumns(t)
	idx := make([]int, len(cols))
	for a, c := range cols {
		idx[a], _ = t.Index(c)
	}
	n := len(cols)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			var pa pairAcc
			for i := 0; i < t.Len(); i++ {
				x, okx := t.At(i, idx[a]).Float()
				y, oky := t.At(i, idx[b]).Float()
				if okx && oky {
					pa.add(x, y)
				}
			}
			v := stat(&pa)
			mat[a][b] = v
			mat[b][a] = v
		}
	}
	if cols == nil {
		cols = []string{}
	}
	return Matrix{Columns: cols, Values: mat}
}

// Correlation returns the Pearson correlation matrix over numeric columns.
func Correlation(t *table.Table) Matrix {
	return pairwise(t, (*pairAcc).correlation)
}

// Covariance returns the sample covariance matrix (n-1) over numeric columns.
func Covariance(t *table.Table) Matrix {
	return pairwise(t, (*pairAcc).covariance)
}
