// Package output renders neix results and progress to the terminal.
//
// Styling uses lipgloss and is applied only when the destination is a TTY
// and NO_COLOR is unset; otherwise every renderer emits plain text.
// Progress indicators are safe for use from multiple goroutines.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette, in ANSI 256 codes.
const (
	colorAccent = "42"  // attr paths
	colorLabel  = "75"  // field labels, headers
	colorValue  = "255" // names
	colorCount  = "51"  // result counts, versions
	colorDim    = "245" // indices, absent values
	colorWarn   = "220"
	colorError  = "196"
)

// Styles is the set of styles used by every renderer.
type Styles struct {
	Attr    lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Count   lipgloss.Style
	Dim     lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style

	enabled bool
}

// NewStyles returns colored styles when color is true and pass-through
// styles otherwise.
func NewStyles(color bool) Styles {
	return Styles{
		Attr:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorLabel)),
		Value:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorValue)),
		Count:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCount)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarn)),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorError)),
		enabled: color,
	}
}

// paint renders s with style, or returns s untouched when color is off.
func (st Styles) paint(style lipgloss.Style, s string) string {
	if !st.enabled {
		return s
	}
	return style.Render(s)
}

// writerIsTTY reports whether w is a terminal file descriptor. Plain
// io.Writer values such as *bytes.Buffer are never terminals.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// ColorEnabled reports whether styled output should be written to w.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return writerIsTTY(w)
}
