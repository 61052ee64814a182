// Package config loads and validates packcam's TOML deployment
// configuration: data and log directories, external tool binaries, store
// backend selection, notification topics, and log output settings.
//
// The operational recording configuration (save directory, camera mode,
// overlay template) is deliberately not here; it is a persisted record owned
// by the store so the CLI and daemon always agree on the current values.
package config
