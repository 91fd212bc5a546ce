package render

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha subset.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorLavender lipgloss.Color = "#b4befe"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(colorLavender).Bold(true)
	creditStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	debitStyle   = lipgloss.NewStyle().Foreground(colorRed)
	labelStyle   = lipgloss.NewStyle().Foreground(colorTeal)
	scalarStyle  = lipgloss.NewStyle().Foreground(colorPink).Bold(true)
	summaryStyle = lipgloss.NewStyle().Foreground(colorSubtext0)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	dryRunStyle  = lipgloss.NewStyle().Foreground(colorOverlay1).Italic(true)
)
