// Package config loads and saves the GreenStudio TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all GreenStudio configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Provider   ProviderConfig   `toml:"provider"`
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultRole string `toml:"default_role"`
	DataDir     string `toml:"data_dir,omitempty"`
}

// ProviderConfig selects the generation backend.
type ProviderConfig struct {
	Kind       string `toml:"kind"` // genai or proxy
	Model      string `toml:"model,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	BaseURL    string `toml:"base_url,omitempty"`
	TimeoutSec int    `toml:"timeout_sec,omitempty"`
}

// ServerConfig holds `greenstudio serve` settings.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	EventsBuffer int    `toml:"events_buffer"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultRole: "architect",
		},
		Provider: ProviderConfig{
			Kind:       "genai",
			Model:      "gemini-3-flash-preview",
			TimeoutSec: 60,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:5174",
			EventsBuffer: 200,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Appearance: AppearanceConfig{
			Theme: "greenstudio-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "greenstudio")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "greenstudio")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultDataDir returns the XDG-compliant data directory.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "greenstudio")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "greenstudio")
}

// DataDir returns the configured data directory, or the default.
func DataDir(cfg Config) string {
	if cfg.General.DataDir != "" {
		return cfg.General.DataDir
	}
	return DefaultDataDir()
}

// StatePath returns the session database path inside dataDir.
func StatePath(dataDir string) string {
	return filepath.Join(dataDir, "greenstudio.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetAPIKey returns the provider API key from env var or config, in that order.
func GetAPIKey(cfg Config) string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return cfg.Provider.APIKey
}

// GetProviderURL returns the proxy base URL from env var or config, in that order.
func GetProviderURL(cfg Config) string {
	if u := os.Getenv("GREENSTUDIO_PROVIDER_URL"); u != "" {
		return u
	}
	return cfg.Provider.BaseURL
}

// ProviderTimeout returns the configured provider timeout.
func ProviderTimeout(cfg Config) time.Duration {
	if cfg.Provider.TimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(cfg.Provider.TimeoutSec) * time.Second
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
