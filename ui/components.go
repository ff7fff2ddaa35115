package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column widths shared by the device table and the report.
const (
	colDevice   = 10
	colModel    = 26
	colCapacity = 10
	colType     = 10
	colHealth   = 9
	colTemp     = 6
	colHours    = 9
	colKey      = 12
)

type kv struct {
	Key string
	Val string
}

// styledPad pads a styled string to the given visual width using spaces.
// Unlike fmt.Sprintf("%-Xs"), this accounts for ANSI escape codes.
func styledPad(styled string, width int) string {
	visW := lipgloss.Width(styled)
	if visW >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-visW)
}

// truncate shortens s to width runes, marking the cut with "…".
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

// boxTop renders the top border of a rounded box.
func boxTop(innerW int) string {
	return " " + dimStyle.Render("╭"+strings.Repeat("─", innerW+2)+"╮")
}

// boxBot renders the bottom border of a rounded box.
func boxBot(innerW int) string {
	return " " + dimStyle.Render("╰"+strings.Repeat("─", innerW+2)+"╯")
}

// boxRow renders one content line inside a box, padded to innerW.
func boxRow(content string, innerW int) string {
	pad := innerW - lipgloss.Width(content)
	if pad < 0 {
		pad = 0
	}
	return " " + dimStyle.Render("│") + " " + content + strings.Repeat(" ", pad) + " " + dimStyle.Render("│")
}

// renderKVBox renders key-value pairs inside a bordered box.
func renderKVBox(details []kv, innerW int) string {
	var sb strings.Builder
	sb.WriteString(boxTop(innerW) + "\n")
	for _, d := range details {
		content := fmt.Sprintf("%s %s",
			styledPad(dimStyle.Render(truncate(d.Key, colKey-1)+":"), colKey),
			valueStyle.Render(truncate(d.Val, innerW-colKey-1)))
		sb.WriteString(boxRow(content, innerW) + "\n")
	}
	sb.WriteString(boxBot(innerW) + "\n")
	return sb.String()
}

// renderErrorBox renders an inline error panel with a hint line.
func renderErrorBox(title string, lines []string, hint string, innerW int) string {
	var sb strings.Builder
	sb.WriteString(boxTop(innerW) + "\n")
	sb.WriteString(boxRow(critStyle.Render(truncate(title, innerW)), innerW) + "\n")
	for _, l := range lines {
		sb.WriteString(boxRow(valueStyle.Render(truncate(l, innerW)), innerW) + "\n")
	}
	if hint != "" {
		sb.WriteString(boxRow(helpStyle.Render(hint), innerW) + "\n")
	}
	sb.WriteString(boxBot(innerW) + "\n")
	return sb.String()
}
