package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/incidentlens/internal/table"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(path string) bool { return hasSuffix(path, ".xlsx", ".xlsm") }

func (xlsxLoader) Load(path string, opt Options) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt)
	if err != nil {
		return nil, err
	}
	// Stored values, not display text: number formats round coordinates and
	// render dates and grouped integers in forms the parsers cannot recover.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.Empty()
	}
	header := append([]string(nil), rows[0]...)
	return buildWith(header, rows[1:], func(r, c int, s string) table.Value {
		return xlsxCell(f, sheet, r+2, c+1, s, opt)
	})
}

// xlsxCell types one stored cell value. Numeric cells are taken as written,
// without the locale rules Infer applies to text.
func xlsxCell(f *excelize.File, sheet string, row, col int, s string, opt Options) table.Value {
	if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		if name, err := excelize.CoordinatesToCellName(col, row); err == nil {
			if typ, err := f.GetCellType(sheet, name); err == nil && numericCell(typ) {
				return table.Num(n)
			}
		}
	}
	return Infer(s, opt)
}

// numericCell reports whether a cell stores a number. Cells without a type
// attribute are numbers.
func numericCell(t excelize.CellType) bool {
	return t == excelize.CellTypeUnset || t == excelize.CellTypeNumber
}

func pickSheet(sheets []string, opt Options) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
	}
	if opt.Sheet != "" {
		for _, s := range sheets {
			if s == opt.Sheet {
				return s, nil
			}
		}
		return "", fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, opt.Sheet, strings.Join(sheets, ", "))
	}
	if opt.SheetIndex <= 0 {
		return sheets[0], nil
	}
	if opt.SheetIndex > len(sheets) {
		return "", fmt.Errorf("%w: index %d out of range 1..%d (available: %s)", ErrSheetNotFound, opt.SheetIndex, len(sheets), strings.Join(sheets, ", "))
	}
	return sheets[opt.SheetIndex-1], nil
}
