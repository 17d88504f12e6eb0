// Package views names the aggregate artifacts produced by a run and holds
// them in a catalog that reporting reads from.
package views

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ID is the stable identifier of a view.
type ID string

const (
	IncidentsByPeriod   ID = "incidents-by-period"
	HeatMatrix          ID = "heat-matrix"
	TopAreas            ID = "top-areas"
	TopCategories       ID = "top-categories"
	TopWeapons          ID = "top-weapons"
	TopDescents         ID = "top-descents"
	VictimSex           ID = "victim-sex"
	CaseStatus          ID = "case-status"
	StatusByTopCategory ID = "status-by-top-category"
	Correlation         ID = "correlation"
	Covariance          ID = "covariance"
	HourHistogram       ID = "hour-histogram"
	AgeHistogram        ID = "age-histogram"
	ColumnProfile       ID = "column-profile"
)

// Population names the table a view was computed from.
type Population string

const (
	// Spatial is the coordinate-filtered population.
	Spatial Population = "spatial"
	// Demographic is the age-filtered population.
	Demographic Population = "demographic"
)

// Descriptor documents one view.
type Descriptor struct {
	ID          ID         `json:"id"`
	Population  Population `json:"population"`
	Description string     `json:"description"`
}

var descriptors = []Descriptor{
	{IncidentsByPeriod, Spatial, "Incident counts per (year, month), ordered by date"},
	{HeatMatrix, Spatial, "Year by month grid of incident counts"},
	{TopAreas, Spatial, "Ten most frequent areas"},
	{TopCategories, Spatial, "Ten most frequent crime categories"},
	{TopWeapons, Spatial, "Ten most frequent weapon descriptions"},
	{TopDescents, Demographic, "Ten most frequent victim descents"},
	{VictimSex, Demographic, "Victim sex distribution"},
	{CaseStatus, Spatial, "Case status distribution"},
	{StatusByTopCategory, Spatial, "Case status counts for the five most frequent categories"},
	{Correlation, Spatial, "Pearson correlation over numeric columns"},
	{Covariance, Spatial, "Sample covariance over numeric columns"},
	{HourHistogram, Spatial, "Incident counts for each hour of the day"},
	{AgeHistogram, Demographic, "Victim age distribution in 20 bins"},
	{ColumnProfile, Spatial, "Per-column kind, missing counts and numeric summary"},
}

// All returns every known view descriptor in catalog order.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Lookup resolves a view identifier.
func Lookup(id string) (Descriptor, bool) {
	for _, d := range descriptors {
		if string(d.ID) == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

func order(id ID) int {
	for i, d := range descriptors {
		if d.ID == id {
			return i
		}
	}
	return len(descriptors)
}

var (
	// ErrUnknownView is returned for identifiers outside the catalog.
	ErrUnknownView = errors.New("unknown view")
	// ErrNotComputed is returned for views that were never scheduled.
	ErrNotComputed = errors.New("view not computed")
)

// Error records why a view could not be produced.
type Error struct {
	ID  ID
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("view %s: %v", e.ID, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// View is one finished aggregate.
type View struct {
	ID         ID         `json:"id"`
	Population Population `json:"population"`
	Rows       int        `json:"rows"` // population size
	Data       any        `json:"data"`
}

// Catalog holds the views of one run. It is safe for concurrent use.
type Catalog struct {
	RunID string

	mu    sync.RWMutex
	views map[ID]View
	errs  map[ID]error
}

// NewCatalog returns an empty catalog stamped with runID.
func NewCatalog(runID string) *Catalog {
	return &Catalog{RunID: runID, views: map[ID]View{}, errs: map[ID]error{}}
}

// Put stores a finished view, clearing any earlier failure for it.
func (c *Catalog) Put(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[v.ID] = v
	delete(c.errs, v.ID)
}

// Fail records that a view could not be produced.
func (c *Catalog) Fail(id ID, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, id)
	c.errs[id] = &Error{ID: id, Err: err}
}

// Get returns a view or the reason it is unavailable.
func (c *Catalog) Get(id ID) (View, error) {
	if _, ok := Lookup(string(id)); !ok {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownView, id)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.views[id]; ok {
		return v, nil
	}
	if err, ok := c.errs[id]; ok {
		return View{}, err
	}
	return View{}, &Error{ID: id, Err: ErrNotComputed}
}

// Err returns the recorded failure for id, or nil.
func (c *Catalog) Err(id ID) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errs[id]
}

// IDs lists the produced views in catalog order.
func (c *Catalog) IDs() []ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sorted(c.views)
}

// Failed lists the views that recorded an error, in catalog order.
func (c *Catalog) Failed() []ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sorted(c.errs)
}

// Errors returns a copy of every recorded failure keyed by view.
func (c *Catalog) Errors() map[ID]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[ID]error, len(c.errs))
	for k, v := range c.errs {
		out[k] = v
	}
	return out
}

func sorted[V any](m map[ID]V) []ID {
	out := make([]ID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return order(out[i]) < order(out[j]) })
	return out
}

// As fetches a view and asserts its data type.
func As[T any](c *Catalog, id ID) (T, error) {
	var zero T
	v, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	data, ok := v.Data.(T)
	if !ok {
		return zero, fmt.Errorf("view %s holds %T", id, v.Data)
	}
	return data, nil
}
