// Package aggregate computes the read-only summaries consumed by reporting.
// Every function reads a table snapshot and returns freshly allocated
// results; nothing returned aliases table storage.
package aggregate

import (
	"sort"

	"github.com/KaramelBytes/incidentlens/internal/table"
)

// ErrColumnNotFound is matched by errors for absent grouping columns.
var ErrColumnNotFound = table.ErrColumnNotFound

// Frequency is one entry of a value-count ranking.
type Frequency struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

func column(t *table.Table, op, name string) ([]table.Value, error) {
	if !t.Has(name) {
		return nil, &table.ColumnError{Op: op, Column: name}
	}
	return t.Column(name)
}

// Counts returns the value counts of a column, descending. Missing values are
// not counted. Ties keep the order in which values first appear.
func Counts(t *table.Table, col string) ([]Frequency, error) {
	vals, err := column(t, "counts", col)
	if err != nil {
		return nil, err
	}
	return rank(vals), nil
}

// TopN is Counts truncated to n entries. n <= 0 returns every entry.
func TopN(t *table.Table, col string, n int) ([]Frequency, error) {
	vals, err := column(t, "top-n", col)
	if err != nil {
		return nil, err
	}
	out := rank(vals)
	if n > 0 && len(out) > n {
		out = out[:n:n]
	}
	return out, nil
}

// rankKey separates values that render alike but differ in kind, such as the
// text "1" and the number 1.
type rankKey struct {
	kind table.Kind
	text string
}

func rank(vals []table.Value) []Frequency {
	pos := map[rankKey]int{}
	out := []Frequency{}
	for _, v := range vals {
		if v.IsMissing() {
			continue
		}
		k := rankKey{kind: v.Kind(), text: v.String()}
		if i, ok := pos[k]; ok {
			out[i].Count++
			continue
		}
		pos[k] = len(out)
		out = append(out, Frequency{Value: k.text, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Keys returns the values of a ranking in order.
func Keys(fs []Frequency) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Value
	}
	return out
}
