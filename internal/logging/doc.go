// Package logging builds the slog loggers used across packcam: a console
// handler for interactive runs, a JSON handler for machine-readable logs,
// and helpers for component-scoped loggers and structured attributes.
package logging
