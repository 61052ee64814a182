// Package notifications delivers session lifecycle events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-event toggles let deployments subscribe to session starts,
// session stops, and errors independently.
//
// Extend this package if you need alternative transports; the session
// controller depends only on the Service interface.
package notifications
