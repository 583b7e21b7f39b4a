package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/greenstudio/greenstudio/internal/analytics"
	"github.com/greenstudio/greenstudio/internal/cli"
	"github.com/greenstudio/greenstudio/internal/model"
	"github.com/greenstudio/greenstudio/internal/tui/components"
	"github.com/greenstudio/greenstudio/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderAnalyticsTab() string {
	t := theme.Active
	store := a.svc.Store()
	g := store.GlobalStats()

	cards := components.MetricCardRow([]components.Metric{
		{Label: "Carbon saved", Value: cli.FormatCarbon(g.TotalCarbonSaved), Color: t.Green},
		{Label: "Energy saved", Value: cli.FormatEnergyKWh(g.TotalEnergySaved), Color: t.Yellow},
		{Label: "Water saved", Value: cli.FormatWater(g.TotalWaterSaved), Color: t.Blue},
		{Label: "Tokens saved", Value: cli.FormatTokens(g.TotalTokensSaved), Note: fmt.Sprintf("%d sessions", store.Len())},
	}, a.width)

	inner := components.CardInnerWidth(a.width)
	nameW := max(inner/3, 16)
	barW := max(inner-nameW-30, 8)

	head := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	var b strings.Builder
	b.WriteString(head.Render(padRight("Session", nameW) + padRight("Tokens saved", 14) + padRight("CO₂", 10) + "Share of CO₂"))
	b.WriteString("\n")
	for _, s := range store.Sessions() {
		tot := s.SessionTotals
		share := 0.0
		if g.TotalCarbonSaved > 0 {
			share = tot.CarbonSavedGrams / g.TotalCarbonSaved
		}
		b.WriteString(padRight(cli.Truncate(s.DisplayTitle(), nameW-1), nameW))
		b.WriteString(padRight(cli.FormatNumber(tot.TokensSaved), 14))
		b.WriteString(padRight(cli.FormatCarbon(tot.CarbonSavedGrams), 10))
		b.WriteString(components.ShareBar(share, barW, t.Green))
		b.WriteString("\n")
	}
	if store.Len() == 0 {
		b.WriteString(muted.Render("No sessions yet"))
	}

	table := components.ContentCard("Per-session impact", strings.TrimRight(b.String(), "\n"), a.width)
	return lipgloss.JoinVertical(lipgloss.Left, cards, a.renderTrendCard(), table)
}

const trendDays = 14

func (a App) renderTrendCard() string {
	t := theme.Active
	now := time.Now()
	sessions := a.svc.Store().Sessions()
	days := analytics.AggregateDays(sessions, analytics.Since(now, trendDays), now)
	week := analytics.Aggregate(sessions, analytics.Since(now, 7), time.Time{})

	carbon := analytics.Series(days, func(d model.DailyStats) float64 { return d.Totals.CarbonSavedGrams })
	prompts := analytics.Series(days, func(d model.DailyStats) float64 { return float64(d.Prompts) })

	label := lipgloss.NewStyle().Foreground(t.TextMuted)
	body := strings.Join([]string{
		label.Render(padRight("CO₂ / day", 12)) + components.Sparkline(carbon, t.Green),
		label.Render(padRight("Prompts", 12)) + components.Sparkline(prompts, t.Accent),
		label.Render(fmt.Sprintf("Last 7 days: %d prompts, %s saved, %s reduction",
			week.Prompts, cli.FormatCarbon(week.Totals.CarbonSavedGrams), cli.FormatPercent(week.Reduction))),
	}, "\n")
	return components.ContentCard(fmt.Sprintf("Last %d days", trendDays), body, a.width)
}
