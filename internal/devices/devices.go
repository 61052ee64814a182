// Package devices enumerates local video capture devices so the operator
// can pick one for local recording. An empty device id always means "use
// the platform default".
package devices

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Device is one selectable capture device.
type Device struct {
	// ID is the stable identifier stored in the recording configuration,
	// e.g. /dev/video0.
	ID string
	// Label is the human-readable name reported by the driver.
	Label string
}

// Event is a hotplug notification for a capture device.
type Event struct {
	// Action is "add" or "remove".
	Action string
	Device Device
}

// listFromSysfs reads video4linux entries under the given sysfs class root.
// Split out from List so the parsing is testable on any platform.
func listFromSysfs(root string) ([]Device, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var devices []Device
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "video") {
			continue
		}
		label := name
		if raw, err := os.ReadFile(filepath.Join(root, name, "name")); err == nil {
			if trimmed := strings.TrimSpace(string(raw)); trimmed != "" {
				label = trimmed
			}
		}
		devices = append(devices, Device{
			ID:    "/dev/" + name,
			Label: label,
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}
