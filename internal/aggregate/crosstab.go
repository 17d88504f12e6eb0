package aggregate

import (
	"sort"

	"github.com/KaramelBytes/incidentlens/internal/table"
)

// CrossTab is a dense row-by-column count matrix.
type CrossTab struct {
	RowColumn string   `json:"row_column"`
	ColColumn string   `json:"col_column"`
	Rows      []string `json:"rows"`
	Cols      []string `json:"cols"`
	Cells     [][]int  `json:"cells"` // Cells[rowIdx][colIdx]
}

// CrossTabulate counts rows per (rowCol, colCol) pair, keeping only rows whose
// rowCol value is in restrict. A nil restrict keeps every row. Rows and
// columns are the observed values sorted ascending; absent pairs are zero.
func CrossTabulate(t *table.Table, rowCol, colCol string, restrict []string) (CrossTab, error) {
	rv, err := column(t, "cross-tabulate", rowCol)
	if err != nil {
		return CrossTab{}, err
	}
	cv, err := column(t, "cross-tabulate", colCol)
	if err != nil {
		return CrossTab{}, err
	}
	var allow map[string]bool
	if restrict != nil {
		allow = make(map[string]bool, len(restrict))
		for _, r := range restrict {
			allow[r] = true
		}
	}
	type pair struct{ r, c string }
	counts := map[pair]int{}
	rowSet := map[string]bool{}
	colSet := map[string]bool{}
	for i := range rv {
		if rv[i].IsMissing() || cv[i].IsMissing() {
			continue
		}
		r, c := rv[i].String(), cv[i].String()
		if allow != nil && !allow[r] {
			continue
		}
		rowSet[r] = true
		colSet[c] = true
		counts[pair{r, c}]++
	}
	ct := CrossTab{RowColumn: rowCol, ColColumn: colCol, Rows: sortedStrings(rowSet), Cols: sortedStrings(colSet)}
	ct.Cells = make([][]int, len(ct.Rows))
	for i, r := range ct.Rows {
		ct.Cells[i] = make([]int, len(ct.Cols))
		for j, c := range ct.Cols {
			ct.Cells[i][j] = counts[pair{r, c}]
		}
	}
	return ct, nil
}

// Cell returns the count for a (row, col) pair, zero when absent.
func (c CrossTab) Cell(row, col string) int {
	for i, r := range c.Rows {
		if r != row {
			continue
		}
		for j, k := range c.Cols {
			if k == col {
				return c.Cells[i][j]
			}
		}
	}
	return 0
}

func sortedStrings(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
