package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/greenstudio/greenstudio/internal/cli"
	"github.com/greenstudio/greenstudio/internal/model"
	"github.com/greenstudio/greenstudio/internal/tui/components"
	"github.com/greenstudio/greenstudio/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (a App) updateSessionsKey(key string) (tea.Model, tea.Cmd) {
	store := a.svc.Store()
	sessions := store.Sessions()

	if a.confirmDelete {
		a.confirmDelete = false
		if key != "y" || a.busy || a.sessCursor >= len(sessions) {
			return a, nil
		}
		if _, err := store.DeleteSession(sessions[a.sessCursor].ID); err != nil {
			a.notice = err.Error()
		}
		if a.sessCursor >= store.Len() {
			a.sessCursor = store.Len() - 1
		}
		a.refreshViewport()
		return a, nil
	}

	switch key {
	case "j", "down":
		if a.sessCursor < len(sessions)-1 {
			a.sessCursor++
		}
	case "k", "up":
		if a.sessCursor > 0 {
			a.sessCursor--
		}
	case "g":
		a.sessCursor = 0
	case "G":
		a.sessCursor = max(0, len(sessions)-1)
	case "n":
		return a.newSession(), nil
	case "d":
		if !a.busy && len(sessions) > 0 {
			a.confirmDelete = true
		}
	case "enter":
		if a.busy || a.sessCursor >= len(sessions) {
			return a, nil
		}
		store.SelectSession(sessions[a.sessCursor].ID)
		a.lastAudit = nil
		return a.switchTab(tabChat)
	}
	return a, nil
}

func (a App) renderSessionsTab(h int) string {
	t := theme.Active
	store := a.svc.Store()
	sessions := store.Sessions()

	leftW := a.width / 3
	if leftW < 30 {
		leftW = 30
	}
	rightW := a.width - leftW
	leftInner := components.CardInnerWidth(leftW)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)
	activeMark := lipgloss.NewStyle().Foreground(t.Accent).Render("●")
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	visible := max(h-6, 3)
	offset := 0
	if a.sessCursor >= visible {
		offset = a.sessCursor - visible + 1
	}
	end := min(offset+visible, len(sessions))

	var list strings.Builder
	for i := offset; i < end; i++ {
		s := sessions[i]
		mark := " "
		if s.ID == store.ActiveID() {
			mark = activeMark
		}
		line := cli.Truncate(s.DisplayTitle(), leftInner-3)
		if i == a.sessCursor {
			list.WriteString(mark + " " + selectedStyle.Render(padRight(line, leftInner-2)))
		} else {
			list.WriteString(mark + " " + rowStyle.Render(line))
		}
		list.WriteString("\n")
	}
	list.WriteString("\n")
	if a.confirmDelete {
		list.WriteString(lipgloss.NewStyle().Foreground(t.Red).Render("Delete this session? [y/N]"))
	} else {
		list.WriteString(mutedStyle.Render("[enter]open [n]ew [d]elete"))
	}

	leftCard := components.ContentCard(fmt.Sprintf("Sessions (%d)", len(sessions)), list.String(), leftW)

	var rightCard string
	if a.sessCursor < len(sessions) {
		sel := sessions[a.sessCursor]
		rightCard = components.ContentCard(cli.Truncate(sel.DisplayTitle(), rightW-6),
			renderSessionDetail(sel, components.CardInnerWidth(rightW)), rightW)
	}
	return components.CardRow([]string{leftCard, rightCard})
}

// renderSessionDetail summarises one session: counts, totals, and a
// per-reply carbon sparkline.
func renderSessionDetail(s model.ChatSession, w int) string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary)

	var users, replies, failures int
	var carbon []float64
	for _, m := range s.Messages {
		switch m.Role {
		case model.SpeakerUser:
			users++
		case model.SpeakerAssistant:
			replies++
			if m.Metrics != nil {
				carbon = append(carbon, m.Metrics.CarbonSavedGrams)
			}
		default:
			failures++
		}
	}

	row := func(k, v string) string {
		return label.Render(padRight(k, 16)) + value.Render(v) + "\n"
	}

	tot := s.SessionTotals
	var b strings.Builder
	b.WriteString(row("Created", cli.FormatAge(s.CreatedAt, time.Now())))
	b.WriteString(row("Prompts", fmt.Sprintf("%d", users)))
	b.WriteString(row("Replies", fmt.Sprintf("%d", replies)))
	if failures > 0 {
		b.WriteString(row("Failures", fmt.Sprintf("%d", failures)))
	}
	b.WriteString("\n")
	b.WriteString(row("Tokens used", cli.FormatNumber(tot.TokensUsed)))
	b.WriteString(row("Baseline", cli.FormatNumber(tot.EstimatedBaselineTokens)))
	b.WriteString(row("Tokens saved", cli.FormatNumber(tot.TokensSaved)))
	b.WriteString(row("Energy saved", cli.FormatEnergyKWh(tot.EnergySavedKWh)))
	b.WriteString(row("Water saved", cli.FormatWater(tot.WaterSavedLitres)))
	b.WriteString(row("Carbon saved", cli.FormatCarbon(tot.CarbonSavedGrams)))

	if len(carbon) > 1 {
		b.WriteString("\n")
		b.WriteString(label.Render("Carbon per reply"))
		b.WriteString("\n")
		if len(carbon) > w {
			carbon = carbon[len(carbon)-w:]
		}
		b.WriteString(components.Sparkline(carbon, t.Green))
	}
	return b.String()
}
