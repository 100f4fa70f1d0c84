// Package render provides terminal styling and duration formatting for
// job start/end lines.
package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// NewRenderer returns a lipgloss renderer bound to w. The color profile is
// detected from w; writers that are not color terminals get the ASCII
// profile, under which every style renders as plain text. noColor forces
// the ASCII profile.
func NewRenderer(w io.Writer, noColor bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// IsPlain reports whether r renders styles as plain text.
func IsPlain(r *lipgloss.Renderer) bool {
	return r.ColorProfile() == termenv.Ascii
}
