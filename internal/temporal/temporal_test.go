package temporal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/incidentlens/internal/schema"
	"github.com/KaramelBytes/incidentlens/internal/table"
)

func build(t *testing.T, rows [][]table.Value) *table.Table {
	t.Helper()
	tb, err := table.New([]string{"DATE_RPTD", "DATE_OCC", "TIME_OCC", "LAT"}, rows)
	require.NoError(t, err)
	return tb
}

func TestPadTimeScenario(t *testing.T) {
	tb := build(t, [][]table.Value{
		{table.Str("01/08/2020 12:00:00 AM"), table.Str("01/08/2020 12:00:00 AM"), table.Str("930")},
		{table.Str("2020-02-10"), table.Str("2020-02-09"), table.Str("1400")},
		{table.Str("2021-12-01"), table.Str("2021-11-30"), table.Num(45)},
	})
	res, err := Parse(tb, DefaultColumns())
	require.NoError(t, err)
	out := res.Table

	wantPadded := []string{"0930", "1400", "0045"}
	wantHours := []float64{9, 14, 0}
	for i := range wantPadded {
		v, err := out.Get(i, "TIME_OCC")
		require.NoError(t, err)
		assert.Equal(t, wantPadded[i], v.String())
		h, err := out.Get(i, HourColumn)
		require.NoError(t, err)
		got, ok := h.Float()
		require.True(t, ok, "row %d hour missing", i)
		assert.Equal(t, wantHours[i], got)
	}
	assert.Zero(t, res.Issues.Total())
}

func TestParseDerivesYearMonth(t *testing.T) {
	tb := build(t, [][]table.Value{
		{table.Str("01/09/2020 12:00:00 AM"), table.Str("01/08/2020 12:00:00 AM"), table.Str("2230")},
		{table.Str("garbage"), table.Str("not a date"), table.Str("0100")},
		{table.Null(), table.Num(43831), table.Null()},
	})
	res, err := Parse(tb, DefaultColumns())
	require.NoError(t, err)
	out := res.Table
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"DATE_RPTD", "DATE_OCC", "TIME_OCC", "LAT", "HOUR", "YEAR", "MONTH"}, out.Columns())

	occ, _ := out.Get(0, "DATE_OCC")
	d, ok := occ.Time()
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, 1, 8, 0, 0, 0, 0, time.UTC), d)
	y, _ := out.Get(0, YearColumn)
	m, _ := out.Get(0, MonthColumn)
	assert.Equal(t, "2020", y.String())
	assert.Equal(t, "1", m.String())

	// unparsable dates stay as explicit Missing, the row is kept
	for _, c := range []string{"DATE_RPTD", "DATE_OCC", YearColumn, MonthColumn} {
		v, _ := out.Get(1, c)
		assert.True(t, v.IsMissing(), c)
	}
	assert.Equal(t, 1, res.Issues["DATE_RPTD"][ErrDateUnparsable.Error()])
	assert.Equal(t, 1, res.Issues["DATE_OCC"][ErrDateUnparsable.Error()])

	// Excel serial 43831 is 2020-01-01
	y, _ = out.Get(2, YearColumn)
	assert.Equal(t, "2020", y.String())
	h, _ := out.Get(2, HourColumn)
	assert.True(t, h.IsMissing())
}

func TestHourAlwaysInRangeOrMissing(t *testing.T) {
	inputs := []table.Value{
		table.Str("2359"), table.Str("2400"), table.Str("ab12"), table.Str("-5"),
		table.Str("12345"), table.Num(0), table.Str(" 7 "), table.Null(), table.Num(1200.5),
	}
	rows := make([][]table.Value, len(inputs))
	for i, v := range inputs {
		rows[i] = []table.Value{table.Null(), table.Null(), v}
	}
	res, err := Parse(build(t, rows), DefaultColumns())
	require.NoError(t, err)

	hours, err := res.Table.Column(HourColumn)
	require.NoError(t, err)
	for i, h := range hours {
		if h.IsMissing() {
			continue
		}
		f, _ := h.Float()
		assert.GreaterOrEqual(t, f, 0.0, "row %d", i)
		assert.LessOrEqual(t, f, 23.0, "row %d", i)
	}
	got := func(i int) string { return hours[i].String() }
	assert.Equal(t, "23", got(0))
	assert.Equal(t, "", got(1))
	assert.Equal(t, "", got(2))
	// "-5" pads to "00-5"; only the leading two characters are read
	assert.Equal(t, "0", got(3))
	assert.Equal(t, "", got(4))
	assert.Equal(t, "0", got(5))
	assert.Equal(t, "0", got(6))
	assert.Equal(t, "", got(7))
	assert.Equal(t, "", got(8))

	tc := res.Issues["TIME_OCC"]
	assert.Equal(t, 1, tc[ErrHourOutOfRange.Error()])
	assert.Equal(t, 1, tc[ErrTimeNotNumeric.Error()])
	assert.Equal(t, 2, tc[ErrTimeTooLong.Error()])
}

func TestHourErrorsAreDistinct(t *testing.T) {
	_, err := Hour("x930")
	assert.True(t, errors.Is(err, ErrTimeNotNumeric))
	_, err = Hour("2500")
	assert.True(t, errors.Is(err, ErrHourOutOfRange))
	_, err = Hour("45")
	assert.True(t, errors.Is(err, ErrTimeNotNumeric))
	h, err := Hour("0045")
	require.NoError(t, err)
	assert.Equal(t, 0, h)
	h, err = Hour("12.5")
	require.NoError(t, err)
	assert.Equal(t, 12, h)
	_, err = Hour("1:30")
	assert.True(t, errors.Is(err, ErrTimeNotNumeric))
}

func TestParseRequiresColumns(t *testing.T) {
	tb, err := table.Empty("DATE_OCC", "TIME_OCC")
	require.NoError(t, err)
	_, err = Parse(tb, DefaultColumns())
	assert.True(t, errors.Is(err, schema.ErrSchema))
}
