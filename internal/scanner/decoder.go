package scanner

import (
	"strings"
	"sync"
	"time"
)

const (
	// gapReset discards the pending buffer when the inter-key gap exceeds
	// it; a human typing or line noise never matches a scanner burst.
	gapReset = 300 * time.Millisecond
	// idleCommit fires when a burst ends without a terminator key.
	idleCommit = 180 * time.Millisecond
	// minScanLength is the shortest committed text accepted as a scan.
	minScanLength = 3
)

// Key is one raw keystroke from the input device.
type Key struct {
	Rune       rune
	Terminator bool
	// At is the receive time. Zero means "now".
	At time.Time
}

// Event is one decoded scan.
type Event struct {
	Text       string
	ReceivedAt time.Time
}

// Decoder accumulates keystrokes and emits scan events. Safe for use from
// one producer goroutine; the idle timer fires on its own goroutine and is
// serialized with HandleKey internally.
type Decoder struct {
	mu      sync.Mutex
	emit    func(Event)
	buf     []rune
	lastKey time.Time
	timer   *time.Timer
	gen     uint64
	now     func() time.Time
}

// NewDecoder returns a decoder that calls emit once per committed scan.
func NewDecoder(emit func(Event)) *Decoder {
	return &Decoder{emit: emit, now: time.Now}
}

// HandleKey feeds one keystroke into the decoder.
func (d *Decoder) HandleKey(key Key) {
	d.mu.Lock()

	at := key.At
	if at.IsZero() {
		at = d.now()
	}

	if key.Terminator {
		d.stopTimerLocked()
		event, ok := d.commitLocked(at)
		d.mu.Unlock()
		if ok {
			d.emit(event)
		}
		return
	}

	if len(d.buf) > 0 && at.Sub(d.lastKey) > gapReset {
		// Stale partial burst; treat it as noise.
		d.buf = d.buf[:0]
	}
	d.buf = append(d.buf, key.Rune)
	d.lastKey = at
	d.armTimerLocked()
	d.mu.Unlock()
}

// Flush commits any pending buffer immediately. Used on shutdown.
func (d *Decoder) Flush() {
	d.mu.Lock()
	d.stopTimerLocked()
	event, ok := d.commitLocked(d.now())
	d.mu.Unlock()
	if ok {
		d.emit(event)
	}
}

func (d *Decoder) armTimerLocked() {
	d.stopTimerLocked()
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(idleCommit, func() {
		d.onIdle(gen)
	})
}

func (d *Decoder) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *Decoder) onIdle(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		// A newer keystroke re-armed the timer after this fire was queued.
		d.mu.Unlock()
		return
	}
	event, ok := d.commitLocked(d.now())
	d.mu.Unlock()
	if ok {
		d.emit(event)
	}
}

func (d *Decoder) commitLocked(at time.Time) (Event, bool) {
	text := strings.TrimSpace(string(d.buf))
	d.buf = d.buf[:0]
	if len([]rune(text)) < minScanLength {
		return Event{}, false
	}
	return Event{Text: text, ReceivedAt: at}, true
}
