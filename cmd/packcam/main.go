package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"packcam/internal/services"
)

// Exit codes: 1 for operational failures, 2 for rejected operator input so
// scripts wrapping the CLI can tell a bad argument from a broken system.
const (
	exitFailure  = 1
	exitRejected = 2
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		os.Exit(exitFailure)
	}
	fmt.Fprintf(os.Stderr, "packcam: %v\n", err)
	if errors.Is(err, services.ErrInputRejected) {
		os.Exit(exitRejected)
	}
	os.Exit(exitFailure)
}
