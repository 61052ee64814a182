package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"packcam/internal/config"
)

// Requirement defines an external dependency packcam relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the external tools for the given deployment. Local
// capture is in-process via GStreamer, so only diagnostic tooling is
// optional; ffmpeg is required for remote recording and conversions.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Remote stream recording and background conversions",
		},
		{
			Name:        "GStreamer inspect",
			Command:     "gst-inspect-1.0",
			Description: "Diagnoses local capture elements",
			Optional:    true,
		},
	}
}

// Check evaluates the deployment's requirements.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
