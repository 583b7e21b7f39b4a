package tui

import (
	"fmt"
	"strings"

	"github.com/greenstudio/greenstudio/internal/cli"
	"github.com/greenstudio/greenstudio/internal/model"
	"github.com/greenstudio/greenstudio/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderChatTab(h int) string {
	t := theme.Active

	sidebar := a.renderSidebar(h)

	mainW := a.width - sidebarWidth
	title := lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true).
		Render(cli.Truncate(a.svc.Store().Active().DisplayTitle(), mainW-4))

	inputBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Render(a.input.View())

	parts := []string{" " + title, a.viewport.View()}
	if trail := renderAuditTrail(a.lastAudit, mainW); trail != "" && !a.busy {
		parts = append(parts, trail)
	}
	parts = append(parts, inputBox)
	main := lipgloss.JoinVertical(lipgloss.Left, parts...)

	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
}

func (a App) renderSidebar(h int) string {
	t := theme.Active
	store := a.svc.Store()
	inner := sidebarWidth - 3

	activeStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	itemStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	badgeStyle := lipgloss.NewStyle().Foreground(t.Green)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var b strings.Builder
	b.WriteString(labelStyle.Render("HISTORY"))
	b.WriteString("\n")

	activeID := store.ActiveID()
	sessions := store.Sessions()
	maxItems := h - 8
	for i, s := range sessions {
		if i >= maxItems {
			b.WriteString(labelStyle.Render(fmt.Sprintf("+%d more", len(sessions)-i)))
			b.WriteString("\n")
			break
		}
		badge := "-" + fmt.Sprintf("%.1fg", s.SessionTotals.CarbonSavedGrams)
		name := cli.Truncate(s.DisplayTitle(), inner-lipgloss.Width(badge)-3)
		style := itemStyle
		marker := "  "
		if s.ID == activeID {
			style = activeStyle
			marker = "▸ "
		}
		b.WriteString(style.Render(marker + padRight(name, inner-lipgloss.Width(badge)-2)))
		b.WriteString(badgeStyle.Render(badge))
		b.WriteString("\n")
	}

	g := store.GlobalStats()
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("GLOBAL IMPACT"))
	b.WriteString("\n")
	b.WriteString(badgeStyle.Render("CO₂    " + cli.FormatCarbon(g.TotalCarbonSaved)))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(t.Yellow).Render("Energy " + cli.FormatEnergyKWh(g.TotalEnergySaved)))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(t.Blue).Render("Water  " + cli.FormatWater(g.TotalWaterSaved)))

	return lipgloss.NewStyle().
		Width(sidebarWidth - 1).
		Height(h).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(t.Border).
		Render(b.String())
}

// renderTranscript renders every message of s for the chat viewport.
func renderTranscript(s model.ChatSession, width int, md *cli.MarkdownRenderer) string {
	t := theme.Active
	if width < 20 {
		width = 20
	}
	if len(s.Messages) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).
			Render("\n  Start a conversation. Every reply reports the energy, water, and carbon it saved.")
	}

	userLabel := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	botLabel := lipgloss.NewStyle().Foreground(t.Green).Bold(true)
	sysLabel := lipgloss.NewStyle().Foreground(t.Red).Bold(true)
	body := lipgloss.NewStyle().Foreground(t.TextPrimary).Width(width - 2).PaddingLeft(2)
	sysBody := body.Foreground(t.Red)

	var b strings.Builder
	for _, m := range s.Messages {
		ts := m.Timestamp.Local().Format("15:04")
		switch m.Role {
		case model.SpeakerUser:
			b.WriteString(userLabel.Render("You") + " " + lipgloss.NewStyle().Foreground(t.TextDim).Render(ts))
			b.WriteString("\n")
			b.WriteString(body.Render(m.Text))
		case model.SpeakerAssistant:
			b.WriteString(botLabel.Render("GreenStudio") + " " + lipgloss.NewStyle().Foreground(t.TextDim).Render(ts))
			b.WriteString("\n")
			b.WriteString(md.Render(m.Text, width-2))
			if m.Metrics != nil {
				b.WriteString("\n  ")
				b.WriteString(renderBadges(*m.Metrics))
			}
		default:
			b.WriteString(sysLabel.Render("System"))
			b.WriteString("\n")
			b.WriteString(sysBody.Render(m.Text))
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBadges(m model.EcoMetrics) string {
	t := theme.Active
	return strings.Join([]string{
		lipgloss.NewStyle().Foreground(t.Yellow).Render("⚡ " + cli.FormatEnergyWh(m.EnergySavedKWh)),
		lipgloss.NewStyle().Foreground(t.Blue).Render(fmt.Sprintf("💧 %.1f L", m.WaterSavedLitres)),
		lipgloss.NewStyle().Foreground(t.Green).Render("📉 " + cli.FormatCarbon(m.CarbonSavedGrams) + " CO₂"),
	}, "  ")
}

// renderAuditTrail shows the agents that handled the last reply.
func renderAuditTrail(entries []model.AuditEntry, width int) string {
	if len(entries) == 0 {
		return ""
	}
	t := theme.Active
	agents := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Agent] {
			continue
		}
		seen[e.Agent] = true
		agents = append(agents, e.Agent)
	}
	line := "audit: " + strings.Join(agents, " → ")
	return lipgloss.NewStyle().Foreground(t.TextDim).Render(" " + cli.Truncate(line, width-2))
}
