package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"packcam/internal/config"
	"packcam/internal/notifications"
)

func newTestConfig(endpoint string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	cfg.Notifications.SessionStart = true
	cfg.Notifications.SessionStop = true
	cfg.Notifications.Errors = true
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySessionStarted(context.Background(), "AB-1", "J. Doe"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsSessionEvents(t *testing.T) {
	type captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	var got captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := notifications.NewService(newTestConfig(server.URL))
	ctx := context.Background()

	if err := svc.NotifySessionStarted(ctx, "AB-1", "J. Doe"); err != nil {
		t.Fatalf("NotifySessionStarted: %v", err)
	}
	if got.title != "Packcam - Recording Started" {
		t.Fatalf("title = %q", got.title)
	}
	if got.body != "Recording order AB-1 (J. Doe)" {
		t.Fatalf("body = %q", got.body)
	}
	if got.tags != "packcam,session,started" {
		t.Fatalf("tags = %q", got.tags)
	}

	if err := svc.NotifySessionStopped(ctx, "AB-1", "J. Doe", 95*time.Second, "/videos/ab1.mp4"); err != nil {
		t.Fatalf("NotifySessionStopped: %v", err)
	}
	if !strings.Contains(got.body, "in 1m35s") {
		t.Fatalf("stop body missing duration: %q", got.body)
	}
	if !strings.Contains(got.body, "File: /videos/ab1.mp4") {
		t.Fatalf("stop body missing file path: %q", got.body)
	}

	if err := svc.NotifyError(ctx, errors.New("device busy"), "local capture"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if got.priority != "high" {
		t.Fatalf("error priority = %q, want high", got.priority)
	}
	if got.body != "Error with local capture: device busy" {
		t.Fatalf("error body = %q", got.body)
	}
}

func TestNtfyServiceRespectsEventToggles(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.Notifications.SessionStart = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(cfg)
	ctx := context.Background()

	if err := svc.NotifySessionStarted(ctx, "AB-1", "J. Doe"); err != nil {
		t.Fatalf("NotifySessionStarted: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "capture"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if requests != 0 {
		t.Fatalf("disabled events reached the server %d times", requests)
	}

	if err := svc.NotifySessionStopped(ctx, "AB-1", "J. Doe", time.Minute, ""); err != nil {
		t.Fatalf("NotifySessionStopped: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected exactly one request, got %d", requests)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	defer server.Close()

	svc := notifications.NewService(newTestConfig(server.URL))
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
