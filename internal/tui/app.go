// Package tui provides the interactive Bubble Tea front end for GreenStudio.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/greenstudio/greenstudio/internal/builder"
	"github.com/greenstudio/greenstudio/internal/chat"
	"github.com/greenstudio/greenstudio/internal/cli"
	"github.com/greenstudio/greenstudio/internal/model"
	"github.com/greenstudio/greenstudio/internal/orchestrator"
	"github.com/greenstudio/greenstudio/internal/tui/components"
	"github.com/greenstudio/greenstudio/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.uber.org/zap"
)

const (
	tabChat = iota
	tabSessions
	tabAnalytics
	tabRoles
)

const (
	minTerminalWidth = 60
	sidebarWidth     = 30
	inputHeight      = 3
	minContentHeight = 5
)

// replyMsg carries the result of a generation started by submit.
type replyMsg struct {
	pending chat.Pending
	result  orchestrator.Result
	err     error
}

// ConfigReloadedMsg applies settings changed on disk while the TUI runs.
type ConfigReloadedMsg struct {
	Theme string
}

// App is the root Bubble Tea model. All store access happens inside Update
// and View; only the provider call runs in a command.
type App struct {
	ctx    context.Context
	svc    *chat.Service
	logger *zap.Logger
	role   builder.Role

	width     int
	height    int
	activeTab int
	showHelp  bool

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	md       *cli.MarkdownRenderer

	busy      bool
	notice    string
	lastAudit []model.AuditEntry

	sessCursor    int
	confirmDelete bool
	roleCursor    int
}

// NewApp creates the TUI model. ctx bounds in-flight generations.
func NewApp(ctx context.Context, svc *chat.Service, role builder.Role, logger *zap.Logger) App {
	if logger == nil {
		logger = zap.NewNop()
	}

	ta := textarea.New()
	ta.Placeholder = "Describe what to build... (Enter to send)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 8000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	a := App{
		ctx:      ctx,
		svc:      svc,
		logger:   logger,
		role:     role,
		input:    ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		md:       newMarkdown(),
	}
	for i, r := range builder.All() {
		if r == role {
			a.roleCursor = i
		}
	}
	a.refreshViewport()
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tea.EnableMouseCellMotion)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case replyMsg:
		return a.finishReply(msg), nil

	case ConfigReloadedMsg:
		theme.SetActive(msg.Theme)
		a.spinner.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)
		a.md = newMarkdown()
		a.notice = "theme: " + theme.Active.Name
		a.refreshViewport()
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)
	}

	if a.activeTab == tabChat {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y == 0 {
		if tab := components.TabAtX(msg.X, a.activeTab); tab >= 0 {
			return a.switchTab(tab)
		}
	}
	if a.activeTab == tabChat {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "tab":
		return a.switchTab((a.activeTab + 1) % len(components.Tabs))
	case "shift+tab":
		return a.switchTab((a.activeTab + len(components.Tabs) - 1) % len(components.Tabs))
	case "ctrl+n":
		return a.newSession(), nil
	}

	if a.activeTab == tabChat {
		return a.updateChatKey(msg)
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "?":
		a.showHelp = true
		return a, nil
	}
	if len(msg.Runes) == 1 {
		if tab := components.TabIdxByKey(msg.Runes[0]); tab >= 0 {
			return a.switchTab(tab)
		}
	}

	switch a.activeTab {
	case tabSessions:
		return a.updateSessionsKey(key)
	case tabRoles:
		return a.updateRolesKey(key)
	}
	return a, nil
}

func (a App) updateChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return a.submit()
	case "ctrl+r":
		all := builder.All()
		a.roleCursor = (a.roleCursor + 1) % len(all)
		a.role = all[a.roleCursor]
		return a, nil
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	case "esc":
		a.notice = ""
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) switchTab(tab int) (tea.Model, tea.Cmd) {
	a.activeTab = tab
	a.showHelp = false
	a.confirmDelete = false
	if tab == tabChat {
		a.refreshViewport()
		return a, a.input.Focus()
	}
	a.input.Blur()
	return a, nil
}

// submit records the prompt and starts generation in the background.
func (a App) submit() (tea.Model, tea.Cmd) {
	if a.busy {
		return a, nil
	}
	prompt := strings.TrimSpace(a.input.Value())
	p, err := a.svc.Begin("", prompt, a.role)
	if err != nil {
		if !errors.Is(err, chat.ErrEmptyPrompt) {
			a.notice = err.Error()
			a.logger.Error("recording prompt", zap.Error(err))
		}
		return a, nil
	}

	a.input.Reset()
	a.busy = true
	a.notice = ""
	a.refreshViewport()
	return a, tea.Batch(a.spinner.Tick, generateCmd(a.ctx, a.svc, p))
}

func generateCmd(ctx context.Context, svc *chat.Service, p chat.Pending) tea.Cmd {
	return func() tea.Msg {
		res, err := svc.Generate(ctx, p)
		return replyMsg{pending: p, result: res, err: err}
	}
}

func (a App) finishReply(msg replyMsg) App {
	a.busy = false
	reply, err := a.svc.Finish(msg.pending, msg.result, msg.err)
	if err != nil {
		a.notice = "generation failed"
		if msg.err == nil {
			a.notice = err.Error()
		}
	} else {
		a.lastAudit = reply.Audit
	}
	a.refreshViewport()
	return a
}

func (a App) newSession() App {
	if a.busy {
		return a
	}
	if _, err := a.svc.Store().CreateSession(); err != nil {
		a.notice = err.Error()
	}
	a.sessCursor = 0
	a.lastAudit = nil
	a.refreshViewport()
	return a
}

// layout sizes the viewport and input to the terminal.
func (a *App) layout() {
	w := a.width - sidebarWidth - 2
	if w < 20 {
		w = 20
	}
	h := a.height - 2 - inputHeight - 2 // tab bar, status bar, input border
	if h < minContentHeight {
		h = minContentHeight
	}
	a.viewport.Width = w
	a.viewport.Height = h
	a.input.SetWidth(w)
	a.refreshViewport()
}

func (a *App) refreshViewport() {
	a.viewport.SetContent(renderTranscript(a.svc.Store().Active(), a.viewport.Width, a.md))
	a.viewport.GotoBottom()
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return "\n  Loading GreenStudio..."
	}
	if a.width < minTerminalWidth {
		return lipgloss.NewStyle().Foreground(theme.Active.Orange).
			Render("\n  Terminal too narrow. Widen to at least 60 columns.")
	}

	header := components.RenderTabBar(a.activeTab, a.width)
	status := components.RenderStatusBar(a.width, components.StatusInfo{
		Role:     string(a.role),
		Sessions: a.svc.Store().Len(),
		Carbon:   cli.FormatCarbon(a.svc.Store().GlobalStats().TotalCarbonSaved),
		Busy:     a.busy,
		Spinner:  a.spinner.View(),
		Err:      a.notice,
	})

	contentH := a.height - lipgloss.Height(header) - lipgloss.Height(status)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch {
	case a.showHelp:
		content = a.renderHelp()
	case a.activeTab == tabChat:
		content = a.renderChatTab(contentH)
	case a.activeTab == tabSessions:
		content = a.renderSessionsTab(contentH)
	case a.activeTab == tabAnalytics:
		content = a.renderAnalyticsTab()
	case a.activeTab == tabRoles:
		content = a.renderRolesTab()
	}
	content = lipgloss.NewStyle().Height(contentH).MaxHeight(contentH).Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, status)
}

func (a App) renderHelp() string {
	t := theme.Active
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	rows := [][2]string{
		{"tab / shift+tab", "next / previous tab"},
		{"c s a r", "jump to Chat, Sessions, Analytics, Roles"},
		{"enter", "send prompt (Chat), select (Sessions, Roles)"},
		{"ctrl+r", "cycle builder role (Chat)"},
		{"ctrl+n", "new session"},
		{"pgup / pgdown", "scroll transcript"},
		{"j / k", "move cursor"},
		{"d", "delete session (press y to confirm)"},
		{"ctrl+c", "quit"},
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString("  ")
		b.WriteString(keyStyle.Render(padRight(r[0], 18)))
		b.WriteString(descStyle.Render(r[1]))
		b.WriteString("\n")
	}
	return components.ContentCard("Keys", b.String(), min(a.width, 72))
}

// newMarkdown builds a reply renderer for the active theme. Without color
// support the plain style is used.
func newMarkdown() *cli.MarkdownRenderer {
	if lipgloss.ColorProfile() == termenv.Ascii {
		return cli.NewMarkdownRenderer("notty")
	}
	return cli.NewMarkdownRenderer(theme.Active.MarkdownStyle())
}

func padRight(s string, w int) string {
	if n := lipgloss.Width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}
