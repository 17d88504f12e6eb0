// Package export writes run artifacts to disk: the cleaned table, one JSON
// document per view plus a manifest, and the markdown summary.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/incidentlens/internal/table"
	"github.com/KaramelBytes/incidentlens/internal/utils"
)

// SheetName is the worksheet the cleaned table is written to.
const SheetName = "Cleaned"

// ErrUnsupported indicates an output extension with no writer.
var ErrUnsupported = errors.New("unsupported output format")

// WriteTable writes t to path as .xlsx or .csv, chosen by extension.
// Dates are written as YYYY-MM-DD and missing values as empty cells.
func WriteTable(path string, t *table.Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return writeXLSX(path, t)
	case ".csv":
		return writeCSV(path, t)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

func writeCSV(path string, t *table.Table) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j := range rec {
			rec[j] = cellText(t.At(i, j))
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func writeXLSX(path string, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	header := make([]interface{}, t.Width())
	for j, c := range t.Columns() {
		header[j] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		row := make([]interface{}, t.Width())
		for j := range row {
			row[j] = cellValue(t.At(i, j))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func cellText(v table.Value) string {
	if v.IsMissing() {
		return ""
	}
	if d, ok := v.Time(); ok {
		return d.Format(table.DateLayout)
	}
	return v.String()
}

func cellValue(v table.Value) interface{} {
	switch v.Kind() {
	case table.Missing:
		return nil
	case table.Number:
		f, _ := v.Float()
		return f
	default:
		return cellText(v)
	}
}
