package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"packcam/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing file, got exists for %s", resolved)
	}
	if cfg.Store.Backend != "auto" {
		t.Fatalf("expected auto backend default, got %q", cfg.Store.Backend)
	}
	if cfg.FFmpegBinary() != "ffmpeg" {
		t.Fatalf("expected default ffmpeg binary, got %q", cfg.FFmpegBinary())
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		"[store]",
		`backend = "file"`,
		"[logging]",
		`format = "json"`,
		`level = "debug"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Store.Backend != "file" {
		t.Fatalf("expected file backend, got %q", cfg.Store.Backend)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Paths.LogDir == "" {
		t.Fatal("expected log dir to be derived from data dir")
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.DataDir, "packcam.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[store]\nbackend = \"postgres\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := config.ExpandPath("~/captures")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "captures") {
		t.Fatalf("expected %s, got %s", filepath.Join(home, "captures"), got)
	}
}
