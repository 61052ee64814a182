package capture

import (
	"context"
	"time"
)

// Artifact is the result of a stopped capture. Local captures return the
// encoded bytes in memory; remote captures confirm the path the external
// recorder was told to finalize.
type Artifact struct {
	Bytes     []byte
	Path      string
	Container string
	Ext       string
}

// InMemory reports whether the artifact still needs to be written to disk.
func (a Artifact) InMemory() bool {
	return len(a.Bytes) > 0 && a.Path == ""
}

// OverlaySpec describes the text plaque composited onto local captures.
// A nil spec disables the overlay.
type OverlaySpec struct {
	Template  string
	Order     string
	Employee  string
	StartedAt time.Time
}

// StartOptions carries everything a backend needs to begin a session.
type StartOptions struct {
	SessionID string
	Order     string
	Employee  string
	StartedAt time.Time
	Overlay   *OverlaySpec
	// OutputPath is where the remote backend writes its container. The
	// local backend ignores it and returns bytes instead.
	OutputPath string
}

// Backend is one strategy for producing a session's video artifact.
type Backend interface {
	// Start begins capturing. On failure no partial state is left behind.
	Start(ctx context.Context, opts StartOptions) error
	// Stop finishes the capture and returns the artifact or an ack.
	Stop(ctx context.Context) (Artifact, error)
	// Dispose releases devices and processes. Safe to call repeatedly.
	Dispose()
}
