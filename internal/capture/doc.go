// Package capture produces the video artifact for one recording session.
//
// Two interchangeable backends implement the Backend contract. The local
// backend encodes a live device stream in-process through a GStreamer
// pipeline, optionally compositing a text overlay onto every frame. The
// remote backend supervises an external ffmpeg process that records a
// network stream directly into the final container, in either stream-copy
// or re-encode mode.
package capture
