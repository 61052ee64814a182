//go:build linux

package devices

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"packcam/internal/logging"
)

const sysfsVideoClass = "/sys/class/video4linux"

// List enumerates the local capture devices known to the kernel.
func List() ([]Device, error) {
	return listFromSysfs(sysfsVideoClass)
}

// Monitor listens for udev netlink events and reports capture devices being
// plugged or unplugged, so a recording setup can react to the camera cable
// without a daemon restart.
type Monitor struct {
	logger  *slog.Logger
	handler func(ctx context.Context, event Event)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor creates a hotplug monitor. handler is invoked for each add or
// remove of a video4linux device.
func NewMonitor(logger *slog.Logger, handler func(ctx context.Context, event Event)) *Monitor {
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "device-monitor"),
		handler: handler,
	}
}

// Start begins listening for udev netlink events. A failed netlink connect
// is non-fatal: recording still works, hotplug awareness does not.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket, device hotplug detection disabled",
			logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("device monitor started")
	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("device monitor stopped")
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("device monitor error", logging.Error(err))
		}
	}
}

// buildMatcher narrows the netlink stream to video4linux add/remove events.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		return
	}

	event := Event{
		Action: string(uevent.Action),
		Device: Device{ID: devname, Label: devname},
	}
	m.logger.Info("capture device hotplug",
		logging.String("action", event.Action),
		logging.String("device", devname))

	if m.handler != nil {
		m.handler(ctx, event)
	}
}

func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/dev/") {
			devname = "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
