// Package daemon hosts the long-running packcam process. It wires the
// scanner input loop, the session controller, the background transcode
// supervisor, and the device hotplug monitor into a single lifecycle with
// flock-based locking to prevent multiple instances per machine.
package daemon
