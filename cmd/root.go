// Package cmd implements the greenstudio CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/greenstudio/greenstudio/internal/builder"
	"github.com/greenstudio/greenstudio/internal/chat"
	"github.com/greenstudio/greenstudio/internal/cli"
	"github.com/greenstudio/greenstudio/internal/config"
	"github.com/greenstudio/greenstudio/internal/logging"
	"github.com/greenstudio/greenstudio/internal/orchestrator"
	"github.com/greenstudio/greenstudio/internal/provider"
	"github.com/greenstudio/greenstudio/internal/session"
	"github.com/greenstudio/greenstudio/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	flagDataDir string
	flagQuiet   bool
	flagDebug   bool
	flagRole    string
)

var rootCmd = &cobra.Command{
	Use:   "greenstudio",
	Short: "Eco-aware builder assistant",
	Long: "GreenStudio routes prompts to builder roles and reports the energy, " +
		"water, and carbon saved by concise answers.",
	SilenceUsage: true,
	RunE:         runTUI,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Piped output stays free of escape codes.
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Data directory (default $XDG_DATA_HOME/greenstudio)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagRole, "role", "r", "", "Builder role (see `greenstudio roles`)")
}

// loadConfigOrDefault loads config, returning defaults on error so a broken
// file never blocks the CLI.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Warning: %v (using defaults)\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

func dataDir(cfg config.Config) string {
	if flagDataDir != "" {
		return flagDataDir
	}
	return config.DataDir(cfg)
}

// newLogger builds the command logger. When toFile is set, output goes to
// the configured log file, or greenstudio.log in the data directory.
func newLogger(cfg config.Config, toFile bool) (*zap.Logger, error) {
	opts := logging.Options{
		Level: cfg.Logging.Level,
		Debug: flagDebug,
		Quiet: flagQuiet,
		File:  cfg.Logging.File,
	}
	if toFile && opts.File == "" {
		opts.File = filepath.Join(dataDir(cfg), "greenstudio.log")
	}
	return logging.New(opts)
}

// resolveRole picks the --role flag, then the configured default.
func resolveRole(cfg config.Config) builder.Role {
	name := flagRole
	if name == "" {
		name = cfg.General.DefaultRole
	}
	role, ok := builder.ParseRole(name)
	if !ok && name != "" {
		fmt.Fprintf(os.Stderr, "  Unknown role %q, using the default builder instruction\n", name)
	}
	return role
}

// openStore opens the session database. The returned close func releases it.
func openStore(cfg config.Config, logger *zap.Logger) (*session.Store, func(), error) {
	st, _, closeStore, err := openState(cfg, logger)
	return st, closeStore, err
}

// openState is openStore that also returns the blob backing the store.
func openState(cfg config.Config, logger *zap.Logger) (*session.Store, *store.Blob, func(), error) {
	db, err := store.Open(config.StatePath(dataDir(cfg)))
	if err != nil {
		return nil, nil, nil, err
	}

	blob := db.Blob(session.StorageKey)
	st, err := session.Open(blob, session.WithLogger(logger))
	if err != nil {
		_ = db.Close()
		if errors.Is(err, session.ErrCorruptState) {
			return nil, nil, nil, fmt.Errorf("%w\n  Run `greenstudio sessions reset` to start over", err)
		}
		return nil, nil, nil, err
	}
	return st, blob, func() { _ = db.Close() }, nil
}

func providerConfig(cfg config.Config) provider.Config {
	return provider.Config{
		Kind:    cfg.Provider.Kind,
		Model:   cfg.Provider.Model,
		APIKey:  config.GetAPIKey(cfg),
		BaseURL: config.GetProviderURL(cfg),
		Timeout: config.ProviderTimeout(cfg),
	}
}

// newChatService wires provider, orchestrator, and store.
func newChatService(ctx context.Context, cfg config.Config, st *session.Store, logger *zap.Logger) (*chat.Service, error) {
	gen, err := provider.New(ctx, providerConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	orch := orchestrator.New(gen, orchestrator.WithLogger(logger))
	return chat.NewService(st, orch, logger), nil
}

// outputWidth is the terminal width for wrapped output, 80 when unknown.
func outputWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return min(w, 120)
	}
	return 80
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}
