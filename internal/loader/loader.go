// Package loader reads CSV and XLSX record sets into a raw table. Column
// names are kept verbatim; cells are typed by inference.
package loader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/incidentlens/internal/schema"
	"github.com/KaramelBytes/incidentlens/internal/table"
)

// Options controls how input files are read.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the file among ',', ';', '\t', '|'.
	Delimiter rune
	// Encoding of CSV input: "" (UTF-8, BOM aware), "utf-16", "latin1" or
	// "windows-1252".
	Encoding string
	// Sheet selects an XLSX sheet by name. Takes precedence over SheetIndex.
	Sheet string
	// SheetIndex selects an XLSX sheet, 1-based. 0 means the first sheet.
	SheetIndex int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// Loader reads one input format.
type Loader interface {
	CanLoad(path string) bool
	Load(path string, opt Options) (*table.Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

var (
	// ErrUnsupported indicates an input format no loader accepts.
	ErrUnsupported = errors.New("unsupported input format")
	// ErrSheetNotFound indicates a sheet selector that matches nothing.
	ErrSheetNotFound = errors.New("sheet not found")
)

// Load selects a loader based on the file name and reads the whole file.
func Load(path string, opt Options) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func hasSuffix(path string, exts ...string) bool {
	name := strings.ToLower(path)
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

// build turns a header and string records into a typed table. Fully blank
// records are skipped.
func build(header []string, records [][]string, opt Options) (*table.Table, error) {
	return buildWith(header, records, func(_, _ int, s string) table.Value { return Infer(s, opt) })
}

// buildWith is build with a per-cell typing function. r indexes records.
func buildWith(header []string, records [][]string, cell func(r, c int, s string) table.Value) (*table.Table, error) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rows := make([][]table.Value, 0, len(records))
	for i, rec := range records {
		if blank(rec) {
			continue
		}
		row := make([]table.Value, len(rec))
		for j, s := range rec {
			row[j] = cell(i, j, s)
		}
		rows = append(rows, row)
	}
	t, err := table.New(header, rows)
	if err != nil {
		if errors.Is(err, table.ErrDuplicateColumn) {
			return nil, fmt.Errorf("%w: %w", schema.ErrSchema, err)
		}
		return nil, err
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
