package components

import (
	"fmt"
	"strings"

	"github.com/greenstudio/greenstudio/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders one block per value, scaled to the largest value.
// Non-positive values render as the lowest block.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}

	peak := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = max(0, min(idx, len(sparkBlocks)-1))
		buf.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Render(buf.String())
}

// ShareBar renders the fraction share (0-1) as a bar with a percentage.
func ShareBar(share float64, width int, color lipgloss.Color) string {
	t := theme.Active
	if width < 1 {
		width = 1
	}
	filled := int(share * float64(width))
	filled = max(0, min(filled, width))

	filledStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)

	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled)) +
		" " + pctStyle.Render(fmt.Sprintf("%3.0f%%", share*100))
}
