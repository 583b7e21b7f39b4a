package components

import (
	"strings"
	"testing"

	"github.com/greenstudio/greenstudio/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowMatchesTallestCard(t *testing.T) {
	theme.SetActive("greenstudio-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	if got := len(strings.Split(joined, "\n")); got != tallLines {
		t.Errorf("joined height = %d, want %d", got, tallLines)
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("greenstudio-dark")

	row := MetricCardRow([]Metric{
		{Label: "Carbon", Value: "0.01g"},
		{Label: "Energy", Value: "0.0000 kWh"},
		{Label: "Water", Value: "0.00 L"},
	}, 90)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 90 {
			t.Errorf("line %d width = %d, want 90", i, w)
		}
	}
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	widths := LayoutRow(100, 3)
	sum := 0
	for _, w := range widths {
		sum += w
	}
	if sum != 100 {
		t.Fatalf("sum = %d, want 100", sum)
	}
	if widths[0] != 34 || widths[2] != 33 {
		t.Fatalf("widths = %v, want [34 33 33]", widths)
	}
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range Tabs {
		pos := 0
		for i := range Tabs {
			w := TabWidth(i, active)
			x := pos + w/2
			if got := TabAtX(x, active); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 1
		}
	}
}

func TestSparklineAndShareBar(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	defer lipgloss.SetColorProfile(termenv.TrueColor)

	if got := Sparkline([]float64{0, 2, 4}, "#fff"); got != "▁▄█" {
		t.Errorf("Sparkline = %q, want ▁▄█", got)
	}
	if got := ShareBar(0.5, 4, "#fff"); got != "██░░  50%" {
		t.Errorf("ShareBar = %q", got)
	}
	if got := ShareBar(2, 2, "#fff"); got != "██ 200%" {
		t.Errorf("ShareBar(over) = %q", got)
	}
}
