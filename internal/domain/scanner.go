package domain

import "time"

// CameraDevice is an immutable snapshot of one enumerated camera input.
// The set is replaced wholesale on refresh, never mutated in place.
type CameraDevice struct {
	ID    string `json:"deviceId"`
	Label string `json:"label"`
}

// DecodeResult is one successful frame decode from the active session.
// Results are ephemeral and discarded right after debouncing.
type DecodeResult struct {
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanEvent is a debounced decode, emitted once per distinct physical scan.
type ScanEvent struct {
	ID   int64  `json:"id,string"`
	Code string `json:"code"`
}

// Constraints are advisory capture hints. The underlying driver may
// ignore any of them; nothing here is a guarantee.
type Constraints struct {
	AspectRatio float64 `json:"aspect_ratio"`
	FocusMode   string  `json:"focus_mode"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// DefaultConstraints mirror the capture hints of the original screen.
func DefaultConstraints() Constraints {
	return Constraints{
		AspectRatio: 16.0 / 9.0,
		FocusMode:   "continuous",
		Width:       200,
		Height:      100,
	}
}
