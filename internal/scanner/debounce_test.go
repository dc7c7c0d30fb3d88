package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pajakoo/shoppApp/internal/domain"
)

func result(code string, at time.Time) domain.DecodeResult {
	return domain.DecodeResult{Code: code, Timestamp: at}
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	d := NewDebouncer(time.Second)
	base := time.Now()

	fired := 0
	for i := 0; i < 10; i++ {
		if _, fire := d.Observe(result("5901234123457", base.Add(time.Duration(i)*90*time.Millisecond))); fire {
			fired++
		}
	}
	assert.Equal(t, 1, fired, "a burst of identical codes inside the window is one scan")
}

func TestDebouncerDifferentCodePreempts(t *testing.T) {
	d := NewDebouncer(time.Second)
	base := time.Now()

	var events []string
	seq := []string{"A", "A", "B", "B", "A", "A", "B"}
	for i, code := range seq {
		if c, fire := d.Observe(result(code, base.Add(time.Duration(i)*50*time.Millisecond))); fire {
			events = append(events, c)
		}
	}
	assert.Equal(t, []string{"A", "B", "A", "B"}, events,
		"every distinct code fires in order of first (re)appearance")
}

func TestDebouncerWindowSlides(t *testing.T) {
	d := NewDebouncer(time.Second)
	base := time.Now()

	fired := 0
	// Frames 800ms apart: each repeat lands inside the window measured
	// from the previous frame, so the label held in view stays one scan.
	for i := 0; i < 5; i++ {
		if _, fire := d.Observe(result("X", base.Add(time.Duration(i)*800*time.Millisecond))); fire {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
}

func TestDebouncerRefiresAfterQuiet(t *testing.T) {
	d := NewDebouncer(time.Second)
	base := time.Now()

	_, fire := d.Observe(result("X", base))
	assert.True(t, fire)
	_, fire = d.Observe(result("X", base.Add(1500*time.Millisecond)))
	assert.True(t, fire, "the same item scanned again after the window is a new scan")
}

func TestDebouncerReset(t *testing.T) {
	d := NewDebouncer(time.Second)
	base := time.Now()

	_, fire := d.Observe(result("X", base))
	assert.True(t, fire)
	d.Reset()
	_, fire = d.Observe(result("X", base.Add(10*time.Millisecond)))
	assert.True(t, fire, "reset forgets the last observation")
}

func TestDebouncerDefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultDebounce, NewDebouncer(0).Window())
	assert.Equal(t, 800*time.Millisecond, NewDebouncer(800*time.Millisecond).Window())
}
