package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"packcam/internal/config"
)

const userAgent = "packcam/0.1.0"

// Service defines the notification surface exposed to the session
// lifecycle.
type Service interface {
	NotifySessionStarted(ctx context.Context, order, employee string) error
	NotifySessionStopped(ctx context.Context, order, employee string, duration time.Duration, filePath string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		sessionStart: cfg.Notifications.SessionStart,
		sessionStop:  cfg.Notifications.SessionStop,
		errors:       cfg.Notifications.Errors,
	}
}

// NewNoop returns a service that drops every notification.
func NewNoop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	sessionStart bool
	sessionStop  bool
	errors       bool
}

func (n *ntfyService) NotifySessionStarted(ctx context.Context, order, employee string) error {
	if !n.sessionStart {
		return nil
	}
	order = strings.TrimSpace(order)
	employee = strings.TrimSpace(employee)
	if employee == "" {
		employee = "unknown operator"
	}
	data := payload{
		title:   "Packcam - Recording Started",
		message: fmt.Sprintf("Recording order %s (%s)", order, employee),
		tags:    []string{"packcam", "session", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionStopped(ctx context.Context, order, employee string, duration time.Duration, filePath string) error {
	if !n.sessionStop {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	order = strings.TrimSpace(order)
	employee = strings.TrimSpace(employee)
	message := fmt.Sprintf("Finished order %s (%s) in %s", order, employee, durationText)
	if filePath = strings.TrimSpace(filePath); filePath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, filePath)
	}
	data := payload{
		title:   "Packcam - Recording Finished",
		message: message,
		tags:    []string{"packcam", "session", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Packcam - Error",
		message:  builder.String(),
		tags:     []string{"packcam", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Packcam - Test",
		message:  "Notification system test",
		tags:     []string{"packcam", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySessionStarted(context.Context, string, string) error {
	return nil
}

func (noopService) NotifySessionStopped(context.Context, string, string, time.Duration, string) error {
	return nil
}

func (noopService) NotifyError(context.Context, error, string) error {
	return nil
}

func (noopService) TestNotification(context.Context) error {
	return nil
}
