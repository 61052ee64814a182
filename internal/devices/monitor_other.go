//go:build !linux

package devices

import (
	"context"
	"log/slog"
)

// List reports no enumerable devices on platforms without sysfs; the
// capture backend falls back to the platform default device.
func List() ([]Device, error) {
	return nil, nil
}

// Monitor is a no-op on platforms without udev.
type Monitor struct{}

func NewMonitor(logger *slog.Logger, handler func(ctx context.Context, event Event)) *Monitor {
	return &Monitor{}
}

func (m *Monitor) Start(ctx context.Context) error { return nil }

func (m *Monitor) Stop() {}

func (m *Monitor) Running() bool { return false }
