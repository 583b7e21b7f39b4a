package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/greenstudio/greenstudio/internal/config"
	"github.com/greenstudio/greenstudio/internal/tui"
	"github.com/greenstudio/greenstudio/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive chat (default command)",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg := loadConfigOrDefault()
	theme.SetActive(cfg.Appearance.Theme)

	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := newChatService(ctx, cfg, st, logger)
	if err != nil {
		return fmt.Errorf("%w\n  Run `greenstudio setup` to configure a provider", err)
	}

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	logger.Info("tui started", zap.Int("sessions", st.Len()))
	app := tui.NewApp(ctx, svc, resolveRole(cfg), logger)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if w, err := config.Watch(logger); err != nil {
		logger.Warn("config watch disabled", zap.Error(err))
	} else {
		defer func() { _ = w.Close() }()
		go func() {
			for c := range w.Changes() {
				p.Send(tui.ConfigReloadedMsg{Theme: c.Appearance.Theme})
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
