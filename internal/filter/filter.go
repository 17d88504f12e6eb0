// Package filter removes rows from a table snapshot: the spatial filter drops
// rows without usable coordinates and the demographic filter drops rows with
// implausible victim ages. Neither changes a surviving row.
package filter

import (
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/KaramelBytes/incidentlens/internal/schema"
	"github.com/KaramelBytes/incidentlens/internal/table"
)

// Stats describes one filter application.
type Stats struct {
	In      int
	Out     int
	Removed int
}

// Underflow reports whether a non-empty input lost every row.
func (s Stats) Underflow() bool { return s.In > 0 && s.Out == 0 }

// SpatialStats adds the lon/lat extent of the surviving rows.
type SpatialStats struct {
	Stats
	Extent *geom.Bounds
}

// Numeric reads a cell as a finite float. Numeric text is accepted.
func Numeric(v table.Value) (float64, bool) {
	var f float64
	switch v.Kind() {
	case table.Number:
		f, _ = v.Float()
	case table.String:
		s, _ := v.Text()
		x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Spatial keeps rows whose latitude and longitude are both present and numeric.
func Spatial(t *table.Table, latCol, lonCol string) (*table.Table, SpatialStats, error) {
	if err := schema.Require(t, "spatial filter", latCol, lonCol); err != nil {
		return nil, SpatialStats{}, err
	}
	li, _ := t.Index(latCol)
	oi, _ := t.Index(lonCol)
	extent := geom.NewBounds(geom.XY)
	out := t.Filter(func(i int) bool {
		lat, ok := Numeric(t.At(i, li))
		if !ok {
			return false
		}
		lon, ok := Numeric(t.At(i, oi))
		if !ok {
			return false
		}
		extent.Extend(geom.NewPointFlat(geom.XY, []float64{lon, lat}))
		return true
	})
	st := SpatialStats{Stats: Stats{In: t.Len(), Out: out.Len(), Removed: t.Len() - out.Len()}}
	if out.Len() > 0 {
		st.Extent = extent
	}
	return out, st, nil
}

// AgeRange bounds plausible victim ages, both ends exclusive.
type AgeRange struct {
	Min float64
	Max float64
}

// DefaultAgeRange keeps ages strictly between 0 and 100.
func DefaultAgeRange() AgeRange { return AgeRange{Min: 0, Max: 100} }

// Contains reports whether age lies strictly inside the range.
func (r AgeRange) Contains(age float64) bool { return age > r.Min && age < r.Max }

// Demographic keeps rows whose age column is numeric and inside r. Missing
// and non-numeric ages are removed.
func Demographic(t *table.Table, ageCol string, r AgeRange) (*table.Table, Stats, error) {
	j, ok := t.Index(ageCol)
	if !ok {
		return nil, Stats{}, &table.ColumnError{Op: "demographic filter", Column: ageCol}
	}
	out := t.Filter(func(i int) bool {
		age, ok := Numeric(t.At(i, j))
		return ok && r.Contains(age)
	})
	return out, Stats{In: t.Len(), Out: out.Len(), Removed: t.Len() - out.Len()}, nil
}
