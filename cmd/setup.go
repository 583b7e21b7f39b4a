package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/greenstudio/greenstudio/internal/builder"
	"github.com/greenstudio/greenstudio/internal/config"
	"github.com/greenstudio/greenstudio/internal/provider"
	"github.com/greenstudio/greenstudio/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupValues holds the form fields before they are folded into a Config.
type setupValues struct {
	kind    string
	apiKey  string
	baseURL string
	model   string
	timeout string
	role    string
	theme   string
}

func setupValuesFrom(cfg config.Config) setupValues {
	timeout := cfg.Provider.TimeoutSec
	if timeout <= 0 {
		timeout = 60
	}
	return setupValues{
		kind:    orDefault(cfg.Provider.Kind, provider.KindGenAI),
		baseURL: cfg.Provider.BaseURL,
		model:   orDefault(cfg.Provider.Model, provider.DefaultModel),
		timeout: strconv.Itoa(timeout),
		role:    orDefault(cfg.General.DefaultRole, string(builder.Architect)),
		theme:   orDefault(cfg.Appearance.Theme, theme.GreenStudioDark.Name),
	}
}

// apply folds v into cfg. An empty API key keeps the existing one.
func (v setupValues) apply(cfg config.Config) config.Config {
	cfg.Provider.Kind = v.kind
	if key := strings.TrimSpace(v.apiKey); key != "" {
		cfg.Provider.APIKey = key
	}
	cfg.Provider.BaseURL = strings.TrimSpace(v.baseURL)
	cfg.Provider.Model = strings.TrimSpace(v.model)
	if n, err := strconv.Atoi(strings.TrimSpace(v.timeout)); err == nil && n > 0 {
		cfg.Provider.TimeoutSec = n
	}
	cfg.General.DefaultRole = v.role
	cfg.Appearance.Theme = v.theme
	return cfg
}

func newSetupForm(cfg config.Config, v *setupValues) *huh.Form {
	keyHint := "Leave blank to use GEMINI_API_KEY"
	if existing := config.GetAPIKey(cfg); existing != "" {
		keyHint = "Current: " + maskAPIKey(existing) + " (blank keeps it)"
	}

	roleOpts := make([]huh.Option[string], 0, len(builder.All()))
	for _, r := range builder.All() {
		roleOpts = append(roleOpts, huh.NewOption(string(r)+"  "+builder.Describe(r), string(r)))
	}
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Generation provider").
				Options(
					huh.NewOption("Gemini API (direct)", provider.KindGenAI),
					huh.NewOption("GreenStudio server (greenstudio serve)", provider.KindProxy),
				).
				Value(&v.kind),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API key").
				Description(keyHint).
				EchoMode(huh.EchoModePassword).
				Value(&v.apiKey),
			huh.NewInput().
				Title("Model").
				Value(&v.model),
		).WithHideFunc(func() bool { return v.kind != provider.KindGenAI }),
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Placeholder("http://127.0.0.1:5174").
				Value(&v.baseURL).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a URL is required for the server provider")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return v.kind != provider.KindProxy }),
		huh.NewGroup(
			huh.NewInput().
				Title("Request timeout (seconds)").
				Value(&v.timeout).
				Validate(func(s string) error {
					if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n <= 0 {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Default builder role").
				Options(roleOpts...).
				Value(&v.role),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.theme),
		),
	)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := loadConfigOrDefault()
	vals := setupValuesFrom(cfg)

	fmt.Println()
	fmt.Println("  Welcome to GreenStudio!")
	fmt.Println()

	if err := newSetupForm(cfg, &vals).Run(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	if err := config.Save(vals.apply(cfg)); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `greenstudio setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
