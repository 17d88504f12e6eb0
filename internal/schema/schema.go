// Package schema canonicalizes raw column identifiers.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/incidentlens/internal/table"
)

// ErrSchema is matched by every fatal column-naming problem.
var ErrSchema = errors.New("schema error")

// CollisionError reports distinct raw columns that share a canonical name.
type CollisionError struct {
	Canonical string
	Sources   []string
}

func (e *CollisionError) Error() string {
	quoted := make([]string, len(e.Sources))
	for i, s := range e.Sources {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("schema error: columns %s all normalize to %q", strings.Join(quoted, ", "), e.Canonical)
}

func (e *CollisionError) Is(target error) bool { return target == ErrSchema }

// UnresolvableError reports a raw column with no usable name.
type UnresolvableError struct {
	Index int
	Raw   string
}

func (e *UnresolvableError) Error() string {
	return fmt.Sprintf("schema error: column %d (%q) has an empty canonical name", e.Index+1, e.Raw)
}

func (e *UnresolvableError) Is(target error) bool { return target == ErrSchema }

// MissingColumnError reports a column a pipeline stage requires.
type MissingColumnError struct {
	Stage  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("schema error: %s requires column %q", e.Stage, e.Column)
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrSchema }

// Canonical trims, upper-cases and replaces spaces with underscores.
func Canonical(name string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), " ", "_")
}

// Normalize renames every column to its canonical form. Distinct raw names
// that collapse to one canonical name are rejected with a *CollisionError
// listing all of them; no column wins.
func Normalize(t *table.Table) (*table.Table, error) {
	cols := t.Columns()
	seen := make(map[string][]string, len(cols))
	var order []string
	for i, c := range cols {
		n := Canonical(c)
		if n == "" {
			return nil, &UnresolvableError{Index: i, Raw: c}
		}
		if _, ok := seen[n]; !ok {
			order = append(order, n)
		}
		seen[n] = append(seen[n], c)
	}
	for _, n := range order {
		if src := seen[n]; len(src) > 1 {
			return nil, &CollisionError{Canonical: n, Sources: src}
		}
	}
	out, err := t.Rename(Canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return out, nil
}

// Require checks that every named column exists.
func Require(t *table.Table, stage string, columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return &MissingColumnError{Stage: stage, Column: c}
		}
	}
	return nil
}
