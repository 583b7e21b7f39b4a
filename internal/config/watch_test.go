package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_DeliversReloadedConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := Save(DefaultConfig()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	w, err := Watch(nil)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer func() { _ = w.Close() }()

	cfg := DefaultConfig()
	cfg.Appearance.Theme = "flexoki-dark"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	select {
	case got := <-w.Changes():
		if got.Appearance.Theme != "flexoki-dark" {
			t.Errorf("Theme = %q, want flexoki-dark", got.Appearance.Theme)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no config change delivered")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	w, err := Watch(nil)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}

	if err := os.WriteFile(filepath.Join(ConfigDir(), "notes.txt"), []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case cfg := <-w.Changes():
		t.Fatalf("unexpected change: %+v", cfg)
	case <-time.After(400 * time.Millisecond):
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, ok := <-w.Changes(); ok {
		t.Error("Changes() should be closed after Close")
	}
}
