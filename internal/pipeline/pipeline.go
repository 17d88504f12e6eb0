// Package pipeline runs the cleaning stages over a raw table and computes the
// view catalog in two aggregation passes: one over the spatially-filtered
// population and one over the age-filtered population.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/incidentlens/internal/filter"
	"github.com/KaramelBytes/incidentlens/internal/logging"
	"github.com/KaramelBytes/incidentlens/internal/schema"
	"github.com/KaramelBytes/incidentlens/internal/table"
	"github.com/KaramelBytes/incidentlens/internal/temporal"
	"github.com/KaramelBytes/incidentlens/internal/views"
)

// Columns names the canonical columns the views read.
type Columns struct {
	Area          string
	Category      string
	Weapon        string
	VictimSex     string
	VictimDescent string
	Status        string
	Lat           string
	Lon           string
	Age           string
	Temporal      temporal.Columns
}

// DefaultColumns returns the canonical incident column names.
func DefaultColumns() Columns {
	return Columns{
		Area:          "AREA_NAME",
		Category:      "CRM_CD_DESC",
		Weapon:        "WEAPON_DESC",
		VictimSex:     "VICT_SEX",
		VictimDescent: "VICT_DESCENT",
		Status:        "STATUS_DESC",
		Lat:           "LAT",
		Lon:           "LON",
		Age:           "VICT_AGE",
		Temporal:      temporal.DefaultColumns(),
	}
}

// Options controls a run.
type Options struct {
	Columns       Columns
	TopN          int
	TopCategories int
	AgeRange      filter.AgeRange
	AgeBins       int
	Workers       int
	Logger        *slog.Logger
}

// DefaultOptions returns the standard report settings.
func DefaultOptions() Options {
	return Options{
		Columns:       DefaultColumns(),
		TopN:          10,
		TopCategories: 5,
		AgeRange:      filter.DefaultAgeRange(),
		AgeBins:       20,
		Workers:       4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Columns == (Columns{}) {
		o.Columns = d.Columns
	}
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.TopCategories <= 0 {
		o.TopCategories = d.TopCategories
	}
	if o.AgeRange == (filter.AgeRange{}) {
		o.AgeRange = d.AgeRange
	}
	if o.AgeBins <= 0 {
		o.AgeBins = d.AgeBins
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}

// Extent is the lon/lat bounding box of the cleaned population.
type Extent struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

func extentOf(b *geom.Bounds) *Extent {
	if b == nil || b.IsEmpty() {
		return nil
	}
	return &Extent{MinLon: b.Min(0), MinLat: b.Min(1), MaxLon: b.Max(0), MaxLat: b.Max(1)}
}

// Diagnostics summarizes what the cleaning stages did.
type Diagnostics struct {
	Loaded             int             `json:"loaded"`
	AfterSpatial       int             `json:"after_spatial"`
	AfterDemographic   int             `json:"after_demographic"`
	SpatialRemoved     int             `json:"spatial_removed"`
	DemographicRemoved int             `json:"demographic_removed"`
	ParseIssues        temporal.Issues `json:"parse_issues"`
	Warnings           []string        `json:"warnings"`
	Extent             *Extent         `json:"extent,omitempty"`
}

// Result is the outcome of one run.
type Result struct {
	RunID string
	// Cleaned is the spatially-filtered population.
	Cleaned *table.Table
	// AgeFiltered is nil when the age column is absent.
	AgeFiltered *table.Table
	Catalog     *views.Catalog
	Diagnostics Diagnostics
}

// Err joins the failures of every view that could not be produced.
func (r *Result) Err() error {
	var errs []error
	for _, id := range r.Catalog.Failed() {
		errs = append(errs, r.Catalog.Err(id))
	}
	return errors.Join(errs...)
}

// Run cleans raw and builds the view catalog. Schema problems are fatal;
// failures of individual views are recorded in the catalog.
func Run(raw *table.Table, opt Options) (*Result, error) {
	opt = opt.withDefaults()
	runID := uuid.NewString()
	log := opt.Logger.With(slog.String("run_id", runID))
	cols := opt.Columns
	diag := Diagnostics{Loaded: raw.Len(), ParseIssues: temporal.Issues{}, Warnings: []string{}}
	log.Info("pipeline started", slog.Int("rows", raw.Len()), slog.Int("columns", raw.Width()))

	norm, err := schema.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize columns: %w", err)
	}

	parsed, err := temporal.Parse(norm, cols.Temporal)
	if err != nil {
		return nil, fmt.Errorf("parse temporal fields: %w", err)
	}
	diag.ParseIssues = parsed.Issues
	for col, kinds := range parsed.Issues {
		for kind, n := range kinds {
			log.Warn("values set to missing", slog.String("column", col), slog.String("reason", kind), slog.Int("count", n))
		}
	}

	cleaned, sst, err := filter.Spatial(parsed.Table, cols.Lat, cols.Lon)
	if err != nil {
		return nil, fmt.Errorf("filter coordinates: %w", err)
	}
	diag.AfterSpatial = sst.Out
	diag.SpatialRemoved = sst.Removed
	diag.Extent = extentOf(sst.Extent)
	log.Info("spatial filter applied", slog.Int("in", sst.In), slog.Int("out", sst.Out), slog.Int("removed", sst.Removed))
	if sst.Underflow() {
		diag.Warnings = append(diag.Warnings, underflow(log, "spatial filter", sst.Stats))
	}

	cat := views.NewCatalog(runID)
	if err := runPass(log, cat, cleaned, views.Spatial, spatialTasks(opt), opt.Workers); err != nil {
		return nil, err
	}

	res := &Result{RunID: runID, Cleaned: cleaned, Catalog: cat}
	aged, dst, err := filter.Demographic(cleaned, cols.Age, opt.AgeRange)
	if err != nil {
		log.Warn("demographic views skipped", slog.String("column", cols.Age), slog.Any("error", err))
		for _, t := range demographicTasks(opt) {
			cat.Fail(t.id, err)
		}
	} else {
		res.AgeFiltered = aged
		diag.AfterDemographic = dst.Out
		diag.DemographicRemoved = dst.Removed
		log.Info("demographic filter applied", slog.Int("in", dst.In), slog.Int("out", dst.Out), slog.Int("removed", dst.Removed))
		if dst.Underflow() {
			diag.Warnings = append(diag.Warnings, underflow(log, "demographic filter", dst))
		}
		if err := runPass(log, cat, aged, views.Demographic, demographicTasks(opt), opt.Workers); err != nil {
			return nil, err
		}
	}

	res.Diagnostics = diag
	log.Info("pipeline finished", slog.Int("views", len(cat.IDs())), slog.Int("failed", len(cat.Failed())))
	return res, nil
}

func underflow(log *slog.Logger, stage string, st filter.Stats) string {
	msg := fmt.Sprintf("%s removed all %d rows", stage, st.In)
	log.Warn("filter underflow", slog.String("stage", stage), slog.Int("in", st.In))
	return msg
}

// runPass computes every task over the same snapshot. A failing task records
// its error in the catalog and does not cancel its siblings.
func runPass(log *slog.Logger, cat *views.Catalog, t *table.Table, pop views.Population, tasks []task, workers int) error {
	var g errgroup.Group
	g.SetLimit(workers)
	for _, tk := range tasks {
		g.Go(func() error {
			data, err := tk.fn(t)
			if err != nil {
				log.Warn("view failed", slog.String("view", string(tk.id)), slog.Any("error", err))
				cat.Fail(tk.id, err)
				return nil
			}
			cat.Put(views.View{ID: tk.id, Population: pop, Rows: t.Len(), Data: data})
			log.Debug("view computed", slog.String("view", string(tk.id)), slog.Int("rows", t.Len()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("aggregate %s population: %w", pop, err)
	}
	return nil
}
