// Package report renders a view catalog for people. Renderers never see the
// tables a catalog was computed from.
package report

import (
	"io"

	"github.com/KaramelBytes/incidentlens/internal/views"
)

// Style is passed to every renderer explicitly; there is no package-level
// plotting state.
type Style struct {
	// Width is the widest bar, in characters.
	Width int `mapstructure:"width" yaml:"width" validate:"min=10,max=200"`
	// Height caps the lines listed per section.
	Height int `mapstructure:"height" yaml:"height" validate:"min=1,max=500"`
	// Theme and Palette are carried for chart renderers.
	Theme   string `mapstructure:"theme" yaml:"theme" validate:"required"`
	Palette string `mapstructure:"palette" yaml:"palette" validate:"required"`
}

// DefaultStyle matches the whitegrid/magma look of the published charts.
func DefaultStyle() Style {
	return Style{Width: 40, Height: 24, Theme: "whitegrid", Palette: "magma"}
}

func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.Width <= 0 {
		s.Width = d.Width
	}
	if s.Height <= 0 {
		s.Height = d.Height
	}
	if s.Theme == "" {
		s.Theme = d.Theme
	}
	if s.Palette == "" {
		s.Palette = d.Palette
	}
	return s
}

// Renderer turns a catalog into a document.
type Renderer interface {
	Render(w io.Writer, cat *views.Catalog, style Style) error
}
