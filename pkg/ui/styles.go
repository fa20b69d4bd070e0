package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accentCyan    = lipgloss.Color("#00FFFF")
	accentMagenta = lipgloss.Color("#FF00FF")
	accentGreen   = lipgloss.Color("#39FF14")
	accentYellow  = lipgloss.Color("#FFFF00")
	accentOrange  = lipgloss.Color("#FF6700")
	accentRed     = lipgloss.Color("#FF0000")
	dimWhite      = lipgloss.Color("#B0B0B0")
	darkBg        = lipgloss.Color("#0A0E27")
)

// styles is the set of styles bound to one renderer
type styles struct {
	label     lipgloss.Style
	value     lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	warning   lipgloss.Style
	highlight lipgloss.Style
	dim       lipgloss.Style
	bar       lipgloss.Style
	barEmpty  lipgloss.Style
	title     lipgloss.Style
	cell      lipgloss.Style
	border    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		label: r.NewStyle().
			Foreground(accentCyan).
			Bold(true),
		value: r.NewStyle().
			Foreground(accentYellow),
		success: r.NewStyle().
			Foreground(accentGreen).
			Bold(true),
		failure: r.NewStyle().
			Foreground(accentRed).
			Bold(true),
		warning: r.NewStyle().
			Foreground(accentOrange).
			Bold(true),
		highlight: r.NewStyle().
			Foreground(accentMagenta),
		dim: r.NewStyle().
			Foreground(dimWhite).
			Faint(true),
		bar: r.NewStyle().
			Foreground(accentGreen),
		barEmpty: r.NewStyle().
			Foreground(lipgloss.Color("#333333")),
		title: r.NewStyle().
			Background(accentMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1),
		cell: r.NewStyle().
			Padding(0, 1),
		border: r.NewStyle().
			Foreground(accentMagenta),
	}
}
