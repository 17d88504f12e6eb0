// Package temporal parses report/occurrence dates and the HHMM occurrence
// time, and derives HOUR, YEAR and MONTH.
//
// Parse failures never drop a row: the affected field becomes Missing and the
// failure is counted in Issues.
package temporal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/incidentlens/internal/schema"
	"github.com/KaramelBytes/incidentlens/internal/table"
)

var (
	ErrDateUnparsable = errors.New("unparsable date")
	ErrTimeNotNumeric = errors.New("time does not start with two digits")
	ErrTimeTooLong    = errors.New("time is longer than 4 characters")
	ErrHourOutOfRange = errors.New("hour out of range")
)

// Derived column names.
const (
	HourColumn  = "HOUR"
	YearColumn  = "YEAR"
	MonthColumn = "MONTH"
)

// Columns names the source columns the parser reads.
type Columns struct {
	Reported string
	Occurred string
	Time     string
}

// DefaultColumns returns the canonical source column names.
func DefaultColumns() Columns {
	return Columns{Reported: "DATE_RPTD", Occurred: "DATE_OCC", Time: "TIME_OCC"}
}

// Issues counts parse failures per column and kind.
type Issues map[string]map[string]int

func (is Issues) add(column string, err error) {
	m := is[column]
	if m == nil {
		m = map[string]int{}
		is[column] = m
	}
	m[err.Error()]++
}

// Total returns the number of recorded failures.
func (is Issues) Total() int {
	n := 0
	for _, m := range is {
		for _, c := range m {
			n += c
		}
	}
	return n
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 03:04:05 PM",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"1/2/06 15:04",
	"01-02-06",
	"2006/01/02",
}

// ParseDate converts a cell to a Time value. Numbers are read as Excel
// serial dates.
func ParseDate(v table.Value) (table.Value, error) {
	switch v.Kind() {
	case table.Missing, table.Time:
		return v, nil
	case table.Number:
		f, _ := v.Float()
		if f <= 0 {
			return table.Null(), ErrDateUnparsable
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return table.Null(), ErrDateUnparsable
		}
		return table.At(t), nil
	}
	s, _ := v.Text()
	s = strings.TrimSpace(s)
	if s == "" {
		return table.Null(), nil
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return table.At(t), nil
		}
	}
	return table.Null(), ErrDateUnparsable
}

// PadTime coerces a time cell to text and left-pads it with zeros to four
// characters. Missing input yields ok == false and a nil error.
func PadTime(v table.Value) (padded string, ok bool, err error) {
	var s string
	switch v.Kind() {
	case table.Missing:
		return "", false, nil
	case table.Number:
		f, _ := v.Float()
		s = table.FormatNumber(f)
	default:
		s = strings.TrimSpace(v.String())
	}
	if s == "" {
		return "", false, nil
	}
	if len(s) > 4 {
		return s, true, ErrTimeTooLong
	}
	return strings.Repeat("0", 4-len(s)) + s, true, nil
}

// Hour parses the first two characters of a padded HHMM string. The minute
// characters are not inspected.
func Hour(padded string) (int, error) {
	if len(padded) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrTimeNotNumeric, padded)
	}
	for i := 0; i < 2; i++ {
		if padded[i] < '0' || padded[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrTimeNotNumeric, padded)
		}
	}
	h := int(padded[0]-'0')*10 + int(padded[1]-'0')
	if h > 23 {
		return 0, fmt.Errorf("%w: %d", ErrHourOutOfRange, h)
	}
	return h, nil
}

// Result is the parsed table plus the failures that became Missing values.
type Result struct {
	Table  *table.Table
	Issues Issues
}

// Parse replaces the two date columns with parsed dates, replaces the time
// column with its padded form, and appends HOUR, YEAR and MONTH.
func Parse(t *table.Table, cols Columns) (*Result, error) {
	if err := schema.Require(t, "temporal parser", cols.Reported, cols.Occurred, cols.Time); err != nil {
		return nil, err
	}
	issues := Issues{}
	n := t.Len()

	parseDates := func(name string) ([]table.Value, error) {
		src, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out := make([]table.Value, n)
		for i, v := range src {
			d, err := ParseDate(v)
			if err != nil {
				issues.add(name, err)
			}
			out[i] = d
		}
		return out, nil
	}
	reported, err := parseDates(cols.Reported)
	if err != nil {
		return nil, err
	}
	occurred, err := parseDates(cols.Occurred)
	if err != nil {
		return nil, err
	}

	rawTimes, err := t.Column(cols.Time)
	if err != nil {
		return nil, err
	}
	times := make([]table.Value, n)
	hours := make([]table.Value, n)
	for i, v := range rawTimes {
		padded, ok, err := PadTime(v)
		if !ok {
			continue
		}
		times[i] = table.Str(padded)
		if err != nil {
			issues.add(cols.Time, err)
			continue
		}
		h, err := Hour(padded)
		if err != nil {
			issues.add(cols.Time, errors.Unwrap(err))
			continue
		}
		hours[i] = table.Num(float64(h))
	}

	years := make([]table.Value, n)
	months := make([]table.Value, n)
	for i, v := range occurred {
		if d, ok := v.Time(); ok {
			years[i] = table.Num(float64(d.Year()))
			months[i] = table.Num(float64(d.Month()))
		}
	}

	out := t
	for _, c := range []struct {
		name string
		vals []table.Value
	}{
		{cols.Reported, reported},
		{cols.Occurred, occurred},
		{cols.Time, times},
		{HourColumn, hours},
		{YearColumn, years},
		{MonthColumn, months},
	} {
		if out, err = out.WithColumn(c.name, c.vals); err != nil {
			return nil, fmt.Errorf("temporal parser: %w", err)
		}
	}
	return &Result{Table: out, Issues: issues}, nil
}
