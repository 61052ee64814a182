// Package services defines shared error classification used across the
// recording pipeline.
//
// Failures are tagged with sentinel markers so callers can distinguish
// rejected operator input from capture problems, missing external tools,
// background job failures, and persistence errors without string matching.
// Use Wrap when surfacing a failure from a component so the error message
// carries component and operation context in a uniform shape.
package services
