package scanner

import (
	"sync"
	"time"

	"github.com/pajakoo/shoppApp/internal/domain"
)

// DefaultDebounce is the window used when configuration supplies none.
const DefaultDebounce = time.Second

// Debouncer collapses the continuous decode stream into discrete scan
// events. A repeat of the same code inside the window means the camera is
// still looking at the same label and is suppressed; the window slides on
// every repeat, so a label held in frame produces exactly one event. A
// different code means the operator moved to a new item and always fires
// immediately, resetting the window.
//
// The policy is wall-clock based and independent of frame rate.
type Debouncer struct {
	window time.Duration

	mu       sync.Mutex
	lastCode string
	lastAt   time.Time
}

// NewDebouncer builds a debouncer with the given window; non-positive
// windows fall back to DefaultDebounce.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window}
}

// Window returns the configured suppression window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Observe feeds one decode result through the policy. It returns the scan
// code and true when a scan event should fire. The result's timestamp is
// used when set so replayed streams debounce deterministically.
func (d *Debouncer) Observe(res domain.DecodeResult) (string, bool) {
	at := res.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if res.Code == d.lastCode && !d.lastAt.IsZero() && at.Sub(d.lastAt) < d.window {
		d.lastAt = at
		return "", false
	}
	d.lastCode = res.Code
	d.lastAt = at
	return res.Code, true
}

// Reset forgets the last observation, so the next decode always fires.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	d.lastCode = ""
	d.lastAt = time.Time{}
	d.mu.Unlock()
}
