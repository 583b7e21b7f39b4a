package cli

import (
	"fmt"
	"strings"

	"github.com/greenstudio/greenstudio/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Palette for plain CLI output. Matches the greenstudio-dark TUI theme.
var (
	ColorBorder    = lipgloss.Color("#2E463E")
	ColorTextDim   = lipgloss.Color("#4A6B60")
	ColorTextMuted = lipgloss.Color("#8BA89D")
	ColorText      = lipgloss.Color("#ECFDF5")
	ColorAccent    = lipgloss.Color("#10B981")
	ColorCarbon    = lipgloss.Color("#22C55E")
	ColorEnergy    = lipgloss.Color("#FACC15")
	ColorWater     = lipgloss.Color("#38BDF8")
	ColorError     = lipgloss.Color("#EF4444")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorTextMuted)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorTextDim)
	carbonStyle = lipgloss.NewStyle().Foreground(ColorCarbon)
	energyStyle = lipgloss.NewStyle().Foreground(ColorEnergy)
	waterStyle  = lipgloss.NewStyle().Foreground(ColorWater)
	errorStyle  = lipgloss.NewStyle().Foreground(ColorError)
)

// Table is a bordered text table. A row holding the single cell "---"
// draws a separator.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, measured from content if nil
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// RenderTable renders t. The first column is left-aligned and the rest are
// right-aligned. Widths are measured in terminal columns.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	cols := len(t.Headers)
	if cols == 0 {
		cols = len(t.Rows[0])
	}
	widths := columnWidths(t, cols)

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	b.WriteString(rule(widths, "╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(row(t.Headers, widths, headerStyle, false))
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}
	for _, r := range t.Rows {
		if len(r) == 1 && r[0] == "---" {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}
		b.WriteString(row(r, widths, valueStyle, true))
	}
	b.WriteString(rule(widths, "╰", "┴", "╯"))
	return b.String()
}

func columnWidths(t Table, cols int) []int {
	widths := make([]int, cols)
	if t.Widths != nil {
		copy(widths, t.Widths)
		return widths
	}
	measure := func(cells []string) {
		for i, c := range cells {
			if i < cols {
				widths[i] = max(widths[i], runewidth.StringWidth(c))
			}
		}
	}
	measure(t.Headers)
	for _, r := range t.Rows {
		if len(r) == 1 && r[0] == "---" {
			continue
		}
		measure(r)
	}
	return widths
}

func rule(widths []int, left, mid, right string) string {
	segs := make([]string, len(widths))
	for i, w := range widths {
		segs[i] = strings.Repeat("─", w+2)
	}
	return dimStyle.Render(left+strings.Join(segs, mid)+right) + "\n"
}

func row(cells []string, widths []int, style lipgloss.Style, alignNumbers bool) string {
	sep := dimStyle.Render("│")
	var b strings.Builder
	b.WriteString(sep)
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		gap := strings.Repeat(" ", max(w-runewidth.StringWidth(cell), 0))
		if alignNumbers && i > 0 {
			cell = gap + cell
		} else {
			cell += gap
		}
		b.WriteString(style.Render(" " + cell + " "))
		b.WriteString(sep)
	}
	b.WriteString("\n")
	return b.String()
}

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline draws values as unicode blocks scaled to the largest value.
// Zero and negative values draw the lowest block.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	top := values[0]
	for _, v := range values[1:] {
		top = max(top, v)
	}
	if top <= 0 {
		top = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / top * float64(len(sparkBlocks)-1))
		b.WriteRune(sparkBlocks[min(max(idx, 0), len(sparkBlocks)-1)])
	}
	return b.String()
}

// RenderEcoBadges renders the per-message savings line.
func RenderEcoBadges(m model.EcoMetrics) string {
	return strings.Join([]string{
		energyStyle.Render("⚡ " + FormatEnergyWh(m.EnergySavedKWh)),
		waterStyle.Render("💧 " + fmt.Sprintf("%.1f L", m.WaterSavedLitres)),
		carbonStyle.Render("📉 " + FormatCarbon(m.CarbonSavedGrams) + " CO₂"),
	}, "  ")
}

// RenderTotals renders a labelled block of accumulated savings.
func RenderTotals(label string, g model.GlobalStats) string {
	var b strings.Builder
	b.WriteString("  " + headerStyle.Render(label) + "\n")
	fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render("Carbon saved:"), carbonStyle.Render(FormatCarbon(g.TotalCarbonSaved)))
	fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render("Energy saved:"), energyStyle.Render(FormatEnergyKWh(g.TotalEnergySaved)))
	fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render("Water saved: "), waterStyle.Render(FormatWater(g.TotalWaterSaved)))
	fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render("Tokens saved:"), valueStyle.Render(FormatNumber(g.TotalTokensSaved)))
	return b.String()
}

// RenderError renders a system diagnostic line.
func RenderError(msg string) string {
	return errorStyle.Render(msg)
}

// Muted renders s in the muted text style.
func Muted(s string) string {
	return mutedStyle.Render(s)
}
