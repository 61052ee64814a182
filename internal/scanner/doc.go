// Package scanner decodes the keystroke stream of a barcode/QR keyboard-wedge
// scanner into discrete scan events.
//
// Wedge scanners type a code as a fast burst of keystrokes, usually followed
// by Enter or Tab. The decoder accumulates keystrokes, treats a long gap as
// the start of a new burst, commits on a terminator key or after a short idle
// period, and drops committed buffers that are too short to be a real code.
package scanner
