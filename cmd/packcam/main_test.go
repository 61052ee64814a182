package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig creates a config file with isolated directories and a
// flat-file store so CLI tests never touch real state.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[store]
backend = "file"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRosterAddListRename(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCLI(t, configPath, "roster", "add", "alice"); err != nil {
		t.Fatalf("roster add: %v", err)
	}
	if _, err := runCLI(t, configPath, "roster", "add", "bob"); err != nil {
		t.Fatalf("roster add: %v", err)
	}
	if _, err := runCLI(t, configPath, "roster", "rename", "alice", "alicia"); err != nil {
		t.Fatalf("roster rename: %v", err)
	}

	out, err := runCLI(t, configPath, "roster", "list")
	if err != nil {
		t.Fatalf("roster list: %v", err)
	}
	if !strings.Contains(out, "alicia") || !strings.Contains(out, "bob") {
		t.Fatalf("unexpected roster output:\n%s", out)
	}
	if strings.Contains(out, " alice ") {
		t.Fatalf("renamed operator still listed:\n%s", out)
	}
}

func TestSessionsListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out, "No sessions recorded yet") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	configPath := writeTestConfig(t)
	saveDir := t.TempDir()

	if _, err := runCLI(t, configPath, "config", "set",
		"--save-dir", saveDir,
		"--camera-mode", "remote",
		"--remote-url", "rtsp://cam.local/stream",
		"--operator", "J. Doe"); err != nil {
		t.Fatalf("config set: %v", err)
	}

	out, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{saveDir, "remote", "rtsp://cam.local/stream", "J. Doe"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}

	// Saving with an operator name upserts the roster.
	rosterOut, err := runCLI(t, configPath, "roster", "list")
	if err != nil {
		t.Fatalf("roster list: %v", err)
	}
	if !strings.Contains(rosterOut, "J. Doe") {
		t.Fatalf("operator missing from roster:\n%s", rosterOut)
	}
}

func TestConfigSetRejectsUnknownCameraMode(t *testing.T) {
	configPath := writeTestConfig(t)

	_, err := runCLI(t, configPath, "config", "set", "--camera-mode", "hybrid")
	if err == nil || !strings.Contains(err.Error(), "camera mode") {
		t.Fatalf("expected camera mode error, got %v", err)
	}
}

func TestMetricsEmptyMonth(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "metrics", "--month", "2024-04")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if !strings.Contains(out, "No sessions in 2024-04") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestMetricsRejectsBadMonth(t *testing.T) {
	configPath := writeTestConfig(t)

	_, err := runCLI(t, configPath, "metrics", "--month", "April 2024")
	if err == nil || !strings.Contains(err.Error(), "YYYY-MM") {
		t.Fatalf("expected month parse error, got %v", err)
	}
}

func TestVersionSkipsConfigLoad(t *testing.T) {
	out, err := runCLI(t, filepath.Join(t.TempDir(), "missing.toml"), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "packcam") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
