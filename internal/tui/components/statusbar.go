package components

import (
	"strconv"
	"strings"

	"github.com/greenstudio/greenstudio/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom bar reports.
type StatusInfo struct {
	Role     string
	Sessions int
	Carbon   string // formatted global carbon savings
	Busy     bool
	Spinner  string
	Err      string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(width)
	accent := lipgloss.NewStyle().Foreground(t.Accent)
	errStyle := lipgloss.NewStyle().Foreground(t.Red)

	left := " [?]help  [tab]switch  [ctrl+c]quit"
	if info.Err != "" {
		left = " " + errStyle.Render(info.Err)
	}

	var right strings.Builder
	if info.Busy {
		right.WriteString(accent.Render(info.Spinner + " generating"))
		right.WriteString("  ")
	}
	right.WriteString("role: ")
	right.WriteString(accent.Render(info.Role))
	right.WriteString("  sessions: ")
	right.WriteString(accent.Render(strconv.Itoa(info.Sessions)))
	if info.Carbon != "" {
		right.WriteString("  CO₂ saved: ")
		right.WriteString(accent.Render(info.Carbon))
	}
	right.WriteString(" ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(right.String())
	if padding < 0 {
		padding = 0
	}

	return style.Render(left + strings.Repeat(" ", padding) + right.String())
}
