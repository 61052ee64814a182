package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputRejected marks scan input that was refused without a state
	// change: no save directory configured, mismatched order while
	// recording, or a scan inside the debounce window.
	ErrInputRejected = errors.New("input rejected")
	// ErrCaptureUnavailable marks capture start failures: device denied or
	// missing, remote recorder failed to spawn.
	ErrCaptureUnavailable = errors.New("capture unavailable")
	// ErrToolMissing marks operations refused because a required external
	// binary is absent.
	ErrToolMissing = errors.New("external tool missing")
	// ErrBackgroundJob marks detached conversion or upscale jobs that
	// exited nonzero. Never propagated into the session lifecycle.
	ErrBackgroundJob = errors.New("background job failed")
	// ErrPersistence marks config, session, or roster write failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrTransient marks everything else.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error that includes component context while tagging it with
// the provided marker for classification. The marker should be one of the
// sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserFacing reports whether the failure should be surfaced to the operator
// as a notice rather than logged as a fault.
func UserFacing(err error) bool {
	return errors.Is(err, ErrInputRejected)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
