package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerRendersComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger = logger.With(String(FieldComponent, "session"))
	logger.Info("recording started", String(FieldOrder, "ABC123"), Int("attempt", 1))

	out := buf.String()
	for _, fragment := range []string{"INFO", "[session]", "recording started", "order=ABC123", "attempt=1"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in output %q", fragment, out)
		}
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be suppressed, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn record missing from %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestErrorAttr(t *testing.T) {
	attr := Error(errors.New("boom"))
	if attr.Key != "error" {
		t.Fatalf("unexpected key %q", attr.Key)
	}
	if attr.Value.Resolve().String() != "boom" {
		t.Fatalf("unexpected value %q", attr.Value.String())
	}
}

func TestNoopHandler(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should never be enabled")
	}
}
