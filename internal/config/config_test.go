package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if Exists() {
		t.Fatal("Exists() = true before any save")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Kind != "genai" {
		t.Errorf("Provider.Kind = %q, want genai", cfg.Provider.Kind)
	}
	if cfg.General.DefaultRole != "architect" {
		t.Errorf("DefaultRole = %q, want architect", cfg.General.DefaultRole)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Provider.Kind = "proxy"
	cfg.Provider.BaseURL = "http://127.0.0.1:9000"
	cfg.General.DefaultRole = "backend"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists() = false after save")
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Provider.Kind != "proxy" || got.Provider.BaseURL != "http://127.0.0.1:9000" {
		t.Errorf("provider = %+v", got.Provider)
	}
	if got.General.DefaultRole != "backend" {
		t.Errorf("DefaultRole = %q", got.General.DefaultRole)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "greenstudio", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Server.Addr != "127.0.0.1:5174" {
		t.Errorf("Server.Addr = %q, want default", cfg.Server.Addr)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "greenstudio", "config.toml")
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, []byte("[provider\nkind="), 0o600)

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded on invalid TOML")
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.APIKey = "from-config"
	cfg.Provider.BaseURL = "http://config"

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GREENSTUDIO_PROVIDER_URL", "")
	if got := GetAPIKey(cfg); got != "from-config" {
		t.Errorf("GetAPIKey = %q, want from-config", got)
	}

	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("GREENSTUDIO_PROVIDER_URL", "http://env")
	if got := GetAPIKey(cfg); got != "from-env" {
		t.Errorf("GetAPIKey = %q, want from-env", got)
	}
	if got := GetProviderURL(cfg); got != "http://env" {
		t.Errorf("GetProviderURL = %q, want http://env", got)
	}
}

func TestDataDirAndTimeout(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	cfg := DefaultConfig()
	if got := DataDir(cfg); got != filepath.Join("/xdg/data", "greenstudio") {
		t.Errorf("DataDir = %q", got)
	}
	cfg.General.DataDir = "/custom"
	if got := DataDir(cfg); got != "/custom" {
		t.Errorf("DataDir = %q, want /custom", got)
	}
	if got := StatePath("/custom"); got != filepath.Join("/custom", "greenstudio.db") {
		t.Errorf("StatePath = %q", got)
	}

	cfg.Provider.TimeoutSec = 0
	if got := ProviderTimeout(cfg); got != 60*time.Second {
		t.Errorf("ProviderTimeout = %v, want 60s", got)
	}
	cfg.Provider.TimeoutSec = 5
	if got := ProviderTimeout(cfg); got != 5*time.Second {
		t.Errorf("ProviderTimeout = %v, want 5s", got)
	}
}
