package cmd

import (
	"fmt"

	"github.com/greenstudio/greenstudio/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default role: %s\n", cfg.General.DefaultRole)
	fmt.Printf("    Data dir:     %s\n", dataDir(cfg))
	fmt.Printf("    State:        %s\n", config.StatePath(dataDir(cfg)))
	fmt.Println()

	fmt.Println("  [Provider]")
	fmt.Printf("    Kind:    %s\n", cfg.Provider.Kind)
	fmt.Printf("    Model:   %s\n", cfg.Provider.Model)
	if key := config.GetAPIKey(cfg); key != "" {
		fmt.Printf("    API key: %s\n", maskAPIKey(key))
	} else {
		fmt.Println("    API key: not configured")
	}
	if u := config.GetProviderURL(cfg); u != "" {
		fmt.Printf("    URL:     %s\n", u)
	}
	fmt.Printf("    Timeout: %s\n", config.ProviderTimeout(cfg))
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:       %s\n", cfg.Server.Addr)
	fmt.Printf("    Events buffer: %d\n", cfg.Server.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Logging]")
	fmt.Printf("    Level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		fmt.Printf("    File:  %s\n", cfg.Logging.File)
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `greenstudio setup` to reconfigure.")
	return nil
}
