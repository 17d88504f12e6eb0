package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/KaramelBytes/incidentlens/internal/schema"
	"github.com/KaramelBytes/incidentlens/internal/table"
	"github.com/KaramelBytes/incidentlens/internal/temporal"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadCSVInfersCells(t *testing.T) {
	p := writeFile(t, "crimes.csv", "\ufeffDate Rptd,TIME OCC,LAT,Mocodes,AREA NAME\n"+
		"01/08/2020 12:00:00 AM,930,34.0141,0344 1822,Central\n"+
		",2130,NA,,\n"+
		"\n"+
		"01/09/2020 12:00:00 AM,45\n")
	tb, err := Load(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Date Rptd", "TIME OCC", "LAT", "Mocodes", "AREA NAME"}, tb.Columns())
	require.Equal(t, 3, tb.Len())

	v, _ := tb.Get(0, "TIME OCC")
	f, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, 930.0, f)

	v, _ = tb.Get(0, "Mocodes")
	assert.Equal(t, table.String, v.Kind())
	assert.Equal(t, "0344 1822", v.String())

	v, _ = tb.Get(0, "Date Rptd")
	assert.Equal(t, table.String, v.Kind())

	v, _ = tb.Get(1, "LAT")
	assert.True(t, v.IsMissing())
	v, _ = tb.Get(1, "Date Rptd")
	assert.True(t, v.IsMissing())

	// short row padded
	v, _ = tb.Get(2, "AREA NAME")
	assert.True(t, v.IsMissing())
}

func TestLoadCSVSniffsDelimiter(t *testing.T) {
	p := writeFile(t, "eu.csv", "LAT;LON;AREA NAME\n\"34,05\";\"-118,25\";Central\n")
	tb, err := Load(p, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"LAT", "LON", "AREA NAME"}, tb.Columns())
	v, _ := tb.Get(0, "LON")
	f, ok := v.Float()
	require.True(t, ok)
	assert.InDelta(t, -118.25, f, 1e-9)

	p = writeFile(t, "tabbed.tsv", "A\tB\n1\tx,y\n")
	tb, err = Load(p, Options{})
	require.NoError(t, err)
	v, _ = tb.Get(0, "B")
	assert.Equal(t, "x,y", v.String())
}

func TestInferLocale(t *testing.T) {
	cases := map[string]float64{
		"1.234,5":  1234.5,
		"1,234.5":  1234.5,
		" 42 ":     42,
		"-7.5e2":   -750,
		"0930":     930,
		"12345.00": 12345,
	}
	for in, want := range cases {
		v := Infer(in, Options{})
		f, ok := v.Float()
		if assert.True(t, ok, "input %q", in) {
			assert.InDelta(t, want, f, 1e-9, "input %q", in)
		}
	}
	for _, in := range []string{"Central", "2020-01-08", "1.2.3", "inf", "N/A"} {
		assert.False(t, Infer(in, Options{}).IsNumber(), "input %q", in)
	}
	assert.True(t, Infer("NaN", Options{}).IsMissing())

	// non-breaking spaces group digits only when configured
	assert.False(t, Infer("1\u00A0234", Options{}).IsNumber())
	v := Infer("1\u00A0234", Options{ThousandsSeparator: ' ', DecimalSeparator: '.'})
	f, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, 1234.0, f)
}

func TestLoadDuplicateHeaderIsSchemaError(t *testing.T) {
	p := writeFile(t, "dup.csv", "LAT,LAT\n1,2\n")
	_, err := Load(p, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrSchema))
	assert.True(t, errors.Is(err, table.ErrDuplicateColumn))
}

func TestLoadEmptyAndUnsupported(t *testing.T) {
	p := writeFile(t, "empty.csv", "")
	tb, err := Load(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, tb.Len())
	assert.Equal(t, 0, tb.Width())

	p = writeFile(t, "notes.docx", "x")
	_, err = Load(p, Options{})
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	assert.Error(t, err)
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "Summary"))
	require.NoError(t, f.SetCellValue("Summary", "A1", "not the data"))
	_, err := f.NewSheet("Crimes")
	require.NoError(t, err)
	rows := [][]any{
		{"DATE OCC", "TIME OCC", "LAT", "LON", "Vict Age"},
		{time.Date(2020, 1, 8, 0, 0, 0, 0, time.UTC), 930, 34.0141, -118.2978, 36},
		{"01/02/2020", "1400", 0, 0, 0},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Crimes", cell, &row))
	}
	p := filepath.Join(t.TempDir(), "crimes.xlsx")
	require.NoError(t, f.SaveAs(p))
	return p
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	p := writeWorkbook(t)

	tb, err := Load(p, Options{Sheet: "Crimes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DATE OCC", "TIME OCC", "LAT", "LON", "Vict Age"}, tb.Columns())
	require.Equal(t, 2, tb.Len())
	v, _ := tb.Get(0, "DATE OCC")
	serial, ok := v.Float()
	require.True(t, ok)
	assert.InDelta(t, 43838, serial, 1e-9)
	v, _ = tb.Get(0, "LAT")
	lat, ok := v.Float()
	require.True(t, ok)
	assert.InDelta(t, 34.0141, lat, 1e-9)
	v, _ = tb.Get(1, "TIME OCC")
	hhmm, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, 1400.0, hhmm)

	byIndex, err := Load(p, Options{SheetIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, byIndex.Len())

	first, err := Load(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"not the data"}, first.Columns())

	_, err = Load(p, Options{Sheet: "Nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSheetNotFound))
	assert.Contains(t, err.Error(), "Summary, Crimes")

	_, err = Load(p, Options{SheetIndex: 5})
	assert.True(t, errors.Is(err, ErrSheetNotFound))
}

func TestLoadCSVEncodings(t *testing.T) {
	body := "AREA NAME\tVict Age\nSão Paulo\t31\n"

	u16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(body)
	require.NoError(t, err)
	p := writeFile(t, "export.txt", u16)
	tb, err := Load(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AREA NAME", "Vict Age"}, tb.Columns())
	v, _ := tb.Get(0, "AREA NAME")
	assert.Equal(t, "São Paulo", v.String())

	l1, err := charmap.ISO8859_1.NewEncoder().String(body)
	require.NoError(t, err)
	p = writeFile(t, "latin.tsv", l1)
	tb, err = Load(p, Options{Encoding: "latin1"})
	require.NoError(t, err)
	v, _ = tb.Get(0, "AREA NAME")
	assert.Equal(t, "São Paulo", v.String())

	_, err = Load(p, Options{Encoding: "ebcdic"})
	assert.True(t, errors.Is(err, ErrEncoding))
}

func TestLoadXLSXIgnoresNumberFormats(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"DATE_RPTD", "DATE_OCC", "TIME_OCC", "LAT", "Mocodes"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"01/08/2020", 43838, 1400, 34.0522, "1.400"}))
	for cell, numFmt := range map[string]int{"B2": 15, "C2": 3, "D2": 2} {
		style, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(sheet, cell, cell, style))
	}
	shown, err := f.GetCellValue(sheet, "C2")
	require.NoError(t, err)
	require.Equal(t, "1,400", shown)
	p := filepath.Join(t.TempDir(), "styled.xlsx")
	require.NoError(t, f.SaveAs(p))

	for _, opt := range []Options{{}, {DecimalSeparator: ',', ThousandsSeparator: '.'}} {
		tb, err := Load(p, opt)
		require.NoError(t, err)
		lat, _ := tb.Get(0, "LAT")
		latVal, ok := lat.Float()
		require.True(t, ok)
		assert.Equal(t, 34.0522, latVal)
		// text cells still follow the configured locale
		code, _ := tb.Get(0, "Mocodes")
		assert.Equal(t, table.Number, code.Kind())

		res, err := temporal.Parse(tb, temporal.DefaultColumns())
		require.NoError(t, err)
		assert.Empty(t, res.Issues)
		occ, _ := res.Table.Get(0, "DATE_OCC")
		d, ok := occ.Time()
		require.True(t, ok)
		assert.Equal(t, "2020-01-08", d.Format("2006-01-02"))
		tm, _ := res.Table.Get(0, "TIME_OCC")
		assert.Equal(t, "1400", tm.String())
		h, _ := res.Table.Get(0, temporal.HourColumn)
		assert.Equal(t, "14", h.String())
		y, _ := res.Table.Get(0, temporal.YearColumn)
		assert.Equal(t, "2020", y.String())
	}
}
