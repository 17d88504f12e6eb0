package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/incidentlens/internal/aggregate"
	"github.com/KaramelBytes/incidentlens/internal/pipeline"
	"github.com/KaramelBytes/incidentlens/internal/views"
)

// Markdown renders a compact text summary with bar charts drawn in
// characters.
type Markdown struct {
	// Source is shown in the header when set.
	Source string
	// Diagnostics adds a cleaning summary when set.
	Diagnostics *pipeline.Diagnostics
}

var _ Renderer = Markdown{}

// Render writes the summary to w.
func (m Markdown) Render(w io.Writer, cat *views.Catalog, style Style) error {
	_, err := io.WriteString(w, m.String(cat, style))
	return err
}

// String renders the summary.
func (m Markdown) String(cat *views.Catalog, style Style) string {
	style = style.withDefaults()
	var b strings.Builder
	b.WriteString("[INCIDENT SUMMARY]\n")
	if m.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", m.Source))
	}
	b.WriteString(fmt.Sprintf("Run: %s\n", cat.RunID))
	b.WriteString(fmt.Sprintf("Style: %s / %s\n", style.Theme, style.Palette))
	if d := m.Diagnostics; d != nil {
		b.WriteString(fmt.Sprintf("Rows: %d loaded, %d with coordinates, %d with plausible ages\n", d.Loaded, d.AfterSpatial, d.AfterDemographic))
		if d.Extent != nil {
			b.WriteString(fmt.Sprintf("Extent: lat %.4f..%.4f, lon %.4f..%.4f\n", d.Extent.MinLat, d.Extent.MaxLat, d.Extent.MinLon, d.Extent.MaxLon))
		}
		if n := d.ParseIssues.Total(); n > 0 {
			b.WriteString(fmt.Sprintf("Parse issues: %d values set to missing\n", n))
		}
	}

	if hm, err := views.As[aggregate.HeatMatrix](cat, views.HeatMatrix); err == nil && len(hm.Years) > 0 {
		b.WriteString("\n[INCIDENTS PER YEAR]\n")
		fs := make([]aggregate.Frequency, len(hm.Years))
		for i, y := range hm.Years {
			n := 0
			for _, c := range hm.Cells[i] {
				n += c
			}
			fs[i] = aggregate.Frequency{Value: fmt.Sprint(y), Count: n}
		}
		bars(&b, fs, style)
	}

	for _, sec := range []struct {
		id    views.ID
		title string
	}{
		{views.TopAreas, "TOP AREAS"},
		{views.TopCategories, "TOP CATEGORIES"},
		{views.TopWeapons, "TOP WEAPONS"},
		{views.CaseStatus, "CASE STATUS"},
		{views.VictimSex, "VICTIM SEX"},
		{views.TopDescents, "VICTIM DESCENT"},
	} {
		fs, err := views.As[[]aggregate.Frequency](cat, sec.id)
		if err != nil || len(fs) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n[%s]\n", sec.title))
		bars(&b, fs, style)
	}

	if ct, err := views.As[aggregate.CrossTab](cat, views.StatusByTopCategory); err == nil && len(ct.Rows) > 0 {
		b.WriteString("\n[STATUS BY TOP CATEGORY]\n")
		b.WriteString("| " + safeVal(ct.RowColumn))
		for _, c := range ct.Cols {
			b.WriteString(" | " + safeVal(c))
		}
		b.WriteString(" |\n|---")
		for range ct.Cols {
			b.WriteString("|---")
		}
		b.WriteString("|\n")
		for i, r := range ct.Rows {
			b.WriteString("| " + safeVal(r))
			for _, c := range ct.Cells[i] {
				b.WriteString(fmt.Sprintf(" | %d", c))
			}
			b.WriteString(" |\n")
		}
	}

	if hs, err := views.As[[]aggregate.Bin](cat, views.HourHistogram); err == nil && total(hs) > 0 {
		b.WriteString("\n[HOUR OF DAY]\n")
		fs := make([]aggregate.Frequency, len(hs))
		for i, h := range hs {
			fs[i] = aggregate.Frequency{Value: fmt.Sprintf("%02d", int(h.Lo)), Count: h.Count}
		}
		bars(&b, fs, style)
	}
	if hs, err := views.As[[]aggregate.Bin](cat, views.AgeHistogram); err == nil && total(hs) > 0 {
		b.WriteString("\n[VICTIM AGE]\n")
		fs := make([]aggregate.Frequency, len(hs))
		for i, h := range hs {
			fs[i] = aggregate.Frequency{Value: fmt.Sprintf("%.0f-%.0f", h.Lo, h.Hi), Count: h.Count}
		}
		bars(&b, fs, style)
	}

	if corr, err := views.As[aggregate.Matrix](cat, views.Correlation); err == nil && len(corr.Columns) >= 2 {
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if corr.Defined(i, j) {
					pairs = append(pairs, pr{A: corr.Columns[i], B: corr.Columns[j], R: corr.Values[i][j]})
				}
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai := math.Abs(pairs[i].R)
			aj := math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		if len(pairs) > 0 {
			b.WriteString("\n[CORRELATIONS]\n")
			for i := 0; i < len(pairs) && i < style.Height; i++ {
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", pairs[i].A, pairs[i].B, pairs[i].R))
			}
		}
	}

	if p, err := views.As[aggregate.Profile](cat, views.ColumnProfile); err == nil && len(p.Columns) > 0 {
		b.WriteString(fmt.Sprintf("\n[SCHEMA] %d rows\n", p.Rows))
		for _, c := range p.Columns {
			missPct := 0.0
			if p.Rows > 0 {
				missPct = float64(c.Missing) * 100.0 / float64(p.Rows)
			}
			b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", c.Name, c.Kind, c.NonNull, missPct))
			if c.Kind == "numeric" {
				b.WriteString(fmt.Sprintf(": min %.4g, median %.4g, max %.4g, mean %.4g", *c.Min, *c.Q50, *c.Max, *c.Mean))
			}
			b.WriteString("\n")
		}
	}

	notes := []string{}
	if m.Diagnostics != nil {
		notes = append(notes, m.Diagnostics.Warnings...)
	}
	for _, id := range cat.Failed() {
		notes = append(notes, cat.Err(id).Error())
	}
	if len(notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// bars writes one labelled bar per entry, scaled so the largest count spans
// style.Width characters.
func bars(b *strings.Builder, fs []aggregate.Frequency, style Style) {
	maxCount, label := 0, 0
	for i, f := range fs {
		if i >= style.Height {
			break
		}
		if f.Count > maxCount {
			maxCount = f.Count
		}
		if l := len(safeVal(f.Value)); l > label {
			label = l
		}
	}
	for i, f := range fs {
		if i >= style.Height {
			b.WriteString(fmt.Sprintf("  ... %d more\n", len(fs)-i))
			break
		}
		n := 0
		if maxCount > 0 {
			n = int(math.Round(float64(f.Count) * float64(style.Width) / float64(maxCount)))
		}
		b.WriteString(fmt.Sprintf("%-*s %s %d\n", label, safeVal(f.Value), strings.Repeat("#", n), f.Count))
	}
}

func total(bs []aggregate.Bin) int {
	n := 0
	for _, b := range bs {
		n += b.Count
	}
	return n
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
