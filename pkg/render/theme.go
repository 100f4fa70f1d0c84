package render

import "github.com/charmbracelet/lipgloss"

// Theme defines the styles used for job start/end lines.
type Theme struct {
	Name        string
	Label       lipgloss.Style // "Starting"
	Muted       lipgloss.Style // "Finished"
	Success     lipgloss.Style // arrows on start and success
	Identifier  lipgloss.Style
	Duration    lipgloss.Style
	Error       lipgloss.Style // "Aborted", "Failed"
	ErrorNormal lipgloss.Style // arrows on abort and failure
	ErrorDetail lipgloss.Style // "[duration, exited with code N]" contents
}

// DefaultTheme returns the classic 16-color ANSI theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Name:        "default",
		Label:       r.NewStyle().Bold(true),
		Muted:       r.NewStyle().Foreground(lipgloss.Color("8")).Bold(true), // bright black
		Success:     r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true), // green
		Identifier:  r.NewStyle().Foreground(lipgloss.Color("6")),            // cyan
		Duration:    r.NewStyle().Foreground(lipgloss.Color("3")),            // yellow
		Error:       r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true), // red
		ErrorNormal: r.NewStyle().Foreground(lipgloss.Color("1")),
		ErrorDetail: r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

// OrcaTheme returns a muted, professional theme.
func OrcaTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Name:        "orca",
		Label:       r.NewStyle().Bold(true),
		Muted:       r.NewStyle().Foreground(lipgloss.Color("245")).Bold(true), // lighter gray
		Success:     r.NewStyle().Foreground(lipgloss.Color("108")).Bold(true), // sage green
		Identifier:  r.NewStyle().Foreground(lipgloss.Color("75")),             // pale blue
		Duration:    r.NewStyle().Foreground(lipgloss.Color("179")),            // muted gold
		Error:       r.NewStyle().Foreground(lipgloss.Color("167")).Bold(true), // muted red
		ErrorNormal: r.NewStyle().Foreground(lipgloss.Color("167")),
		ErrorDetail: r.NewStyle().Foreground(lipgloss.Color("167")),
	}
}

// MonoTheme returns a monochrome theme (no colors).
func MonoTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Name:        "mono",
		Label:       r.NewStyle().Bold(true),
		Muted:       r.NewStyle().Bold(true),
		Success:     r.NewStyle().Bold(true),
		Identifier:  r.NewStyle(),
		Duration:    r.NewStyle(),
		Error:       r.NewStyle().Bold(true),
		ErrorNormal: r.NewStyle(),
		ErrorDetail: r.NewStyle(),
	}
}

// ThemeByName returns a theme by name, defaulting to DefaultTheme.
func ThemeByName(r *lipgloss.Renderer, name string) Theme {
	switch name {
	case "orca":
		return OrcaTheme(r)
	case "mono":
		return MonoTheme(r)
	default:
		return DefaultTheme(r)
	}
}

// ThemeNames lists the built-in theme names.
func ThemeNames() []string {
	return []string{"default", "orca", "mono"}
}
