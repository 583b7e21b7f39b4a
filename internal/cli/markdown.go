package cli

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// MarkdownRenderer renders generated replies for the terminal. One glamour
// renderer is kept per wrap width.
type MarkdownRenderer struct {
	mu      sync.Mutex
	style   string
	byWidth map[int]*glamour.TermRenderer
}

// NewMarkdownRenderer returns a renderer using the named glamour style
// ("dark", "light", "notty"). An empty style picks "notty" when colors are
// off and "dark" otherwise.
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "dark"
		if lipgloss.ColorProfile() == termenv.Ascii {
			style = "notty"
		}
	}
	return &MarkdownRenderer{style: style, byWidth: make(map[int]*glamour.TermRenderer)}
}

// Render returns text styled and wrapped to width. Text glamour cannot
// render is returned unchanged.
func (r *MarkdownRenderer) Render(text string, width int) string {
	if r == nil || strings.TrimSpace(text) == "" {
		return text
	}
	if width < 20 {
		width = 20
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tr, ok := r.byWidth[width]
	if !ok {
		var err error
		tr, err = glamour.NewTermRenderer(
			glamour.WithStylePath(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		r.byWidth[width] = tr
	}

	out, err := tr.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
