package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/smartdash/model"
)

var (
	// Colors
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorGray    = lipgloss.Color("#6272A4")
	colorPanel   = lipgloss.Color("#44475A")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle   = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite)
	helpStyle     = lipgloss.NewStyle().Foreground(colorGray)
	dimStyle      = lipgloss.NewStyle().Foreground(colorGray)
)

func verdictStyle(h model.HealthVerdict) lipgloss.Style {
	switch h {
	case model.HealthGood:
		return okStyle
	case model.HealthWarning:
		return warnStyle
	case model.HealthCritical:
		return critStyle
	default:
		return dimStyle
	}
}

// selfTestStyle colors self-test statuses, which are free text from smartctl.
func selfTestStyle(status string) lipgloss.Style {
	switch status {
	case "Passed", "Completed without error":
		return okStyle
	case "Failed":
		return critStyle
	case "Unknown", "":
		return dimStyle
	default:
		return warnStyle
	}
}
