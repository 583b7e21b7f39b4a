package tui

import (
	"strings"

	"github.com/greenstudio/greenstudio/internal/builder"
	"github.com/greenstudio/greenstudio/internal/tui/components"
	"github.com/greenstudio/greenstudio/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (a App) updateRolesKey(key string) (tea.Model, tea.Cmd) {
	all := builder.All()
	switch key {
	case "j", "down":
		if a.roleCursor < len(all)-1 {
			a.roleCursor++
		}
	case "k", "up":
		if a.roleCursor > 0 {
			a.roleCursor--
		}
	case "enter":
		a.role = all[a.roleCursor]
		return a.switchTab(tabChat)
	}
	return a, nil
}

func (a App) renderRolesTab() string {
	t := theme.Active
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true)
	selStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceHover).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	instrStyle := lipgloss.NewStyle().Foreground(t.TextDim).Italic(true)

	var b strings.Builder
	for i, r := range builder.All() {
		marker := "  "
		style := nameStyle
		if i == a.roleCursor {
			marker = "▸ "
			style = selStyle
		}
		name := string(r)
		if r == a.role {
			name += " (current)"
		}
		b.WriteString(marker + style.Render(padRight(name, 24)) + descStyle.Render(builder.Describe(r)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	sel := builder.All()[a.roleCursor]
	b.WriteString(instrStyle.Render(builder.Resolve(sel)))

	return components.ContentCard("Builder roles [enter] to use", b.String(), a.width)
}
