package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/incidentlens/internal/pipeline"
	"github.com/KaramelBytes/incidentlens/internal/utils"
	"github.com/KaramelBytes/incidentlens/internal/views"
)

// ManifestFile is the name of the index written next to the view documents.
const ManifestFile = "manifest.json"

// ManifestEntry points at one written view.
type ManifestEntry struct {
	ID         views.ID         `json:"id"`
	Population views.Population `json:"population"`
	Rows       int              `json:"rows"`
	File       string           `json:"file"`
}

// Manifest indexes the views of one run.
type Manifest struct {
	RunID       string               `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Views       []ManifestEntry      `json:"views"`
	Errors      map[views.ID]string  `json:"errors"`
	Diagnostics pipeline.Diagnostics `json:"diagnostics"`
}

// WriteViews writes <id>.json for every produced view plus manifest.json into
// dir. Failed views appear only in the manifest's errors.
func WriteViews(dir string, cat *views.Catalog, diag pipeline.Diagnostics) (*Manifest, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}
	m := &Manifest{
		RunID:       cat.RunID,
		GeneratedAt: time.Now().UTC(),
		Views:       []ManifestEntry{},
		Errors:      map[views.ID]string{},
		Diagnostics: diag,
	}
	for _, id := range cat.IDs() {
		v, err := cat.Get(id)
		if err != nil {
			return nil, err
		}
		name := string(id) + ".json"
		if err := utils.WriteJSON(filepath.Join(dir, name), v); err != nil {
			return nil, fmt.Errorf("write view %s: %w", id, err)
		}
		m.Views = append(m.Views, ManifestEntry{ID: id, Population: v.Population, Rows: v.Rows, File: name})
	}
	for id, err := range cat.Errors() {
		m.Errors[id] = err.Error()
	}
	if err := utils.WriteJSON(filepath.Join(dir, ManifestFile), m); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}
