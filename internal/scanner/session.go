// Package scanner owns the camera decode stream: one session at a time,
// acquired on start and released on every exit path.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pajakoo/shoppApp/internal/domain"
	"github.com/pajakoo/shoppApp/internal/metrics"
)

// Driver is the platform collaborator that opens a continuous video-decode
// stream on a camera. An empty device id selects the system default input.
// Constraints are advisory and may be ignored by the capture layer.
type Driver interface {
	Open(ctx context.Context, deviceID string, c domain.Constraints) (DecodeStream, error)
}

// DecodeStream is a lazy, infinite sequence of decode results. Results are
// delivered in capture order. Close is idempotent.
type DecodeStream interface {
	Results() <-chan domain.DecodeResult
	Close() error
}

// IDSource supplies process-unique ids for session log correlation.
type IDSource interface {
	NextID() int64
}

// State is the decode session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Session owns the lifetime of exactly one active decode stream. Starting
// while active first tears the old stream down; stopping when idle is a
// no-op. A failed start leaves the session idle so the operator can retry
// with a different device.
type Session struct {
	driver      Driver
	constraints domain.Constraints
	ids         IDSource

	mu        sync.Mutex
	state     State
	sessionID int64
	device    string
	cancel    context.CancelFunc
	done      chan struct{}

	tmu       sync.Mutex
	decodes   int64
	lastAt    time.Time
	intervals []float64
}

// NewSession builds an idle session over the given driver.
func NewSession(driver Driver, constraints domain.Constraints, ids IDSource) *Session {
	return &Session{driver: driver, constraints: constraints, ids: ids}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Device returns the device id the session was last started with.
func (s *Session) Device() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Start acquires the camera and begins the decode loop, invoking onResult
// for every successful frame decode until Stop. An already running session
// is stopped first, so the active stream always matches the requested
// device.
func (s *Session) Start(ctx context.Context, deviceID string, onResult func(domain.DecodeResult)) error {
	s.mu.Lock()
	if s.state == StateActive || s.state == StateStarting {
		s.mu.Unlock()
		s.Stop()
		s.mu.Lock()
	}
	s.state = StateStarting
	s.sessionID = s.ids.NextID()
	s.device = deviceID
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	sessionID := s.sessionID
	s.mu.Unlock()

	stream, err := s.driver.Open(runCtx, deviceID, s.constraints)
	if err != nil {
		cancel()
		s.mu.Lock()
		if s.sessionID == sessionID {
			s.state = StateIdle
			s.cancel = nil
		}
		s.mu.Unlock()
		return errors.Wrapf(domain.ErrDecodeSession, "device %q: %v", deviceID, err)
	}

	s.mu.Lock()
	if s.state != StateStarting || s.sessionID != sessionID {
		// Stopped or superseded by a newer start while the camera was
		// being acquired.
		s.mu.Unlock()
		_ = stream.Close()
		cancel()
		return errors.Wrapf(domain.ErrDecodeSession, "device %q: superseded during start", deviceID)
	}
	s.state = StateActive
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	s.resetTelemetry()
	zap.L().Info("decode session started",
		zap.Int64("session_id", sessionID),
		zap.String("device", deviceID),
	)
	go s.loop(runCtx, stream, onResult, done)
	return nil
}

// Stop releases the camera and waits for the decode loop to drain, so no
// frame callback runs after it returns. Safe to call in any state.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateStopping {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	cancel := s.cancel
	done := s.done
	sessionID := s.sessionID
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.state = StateIdle
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
	zap.L().Info("decode session stopped", zap.Int64("session_id", sessionID))
}

func (s *Session) loop(ctx context.Context, stream DecodeStream, onResult func(domain.DecodeResult), done chan struct{}) {
	defer close(done)
	defer func() {
		if err := stream.Close(); err != nil {
			zap.S().Warnf("decode stream close: %v", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-stream.Results():
			if !ok {
				return
			}
			if res.Code == "" {
				continue
			}
			if res.Timestamp.IsZero() {
				res.Timestamp = time.Now()
			}
			s.observe(res)
			metrics.Record(metrics.MetricDecode, 1)
			onResult(res)
		}
	}
}

func (s *Session) resetTelemetry() {
	s.tmu.Lock()
	s.decodes = 0
	s.lastAt = time.Time{}
	s.intervals = s.intervals[:0]
	s.tmu.Unlock()
}

func (s *Session) observe(res domain.DecodeResult) {
	s.tmu.Lock()
	s.decodes++
	if !s.lastAt.IsZero() {
		s.intervals = append(s.intervals, res.Timestamp.Sub(s.lastAt).Seconds())
		if len(s.intervals) > 512 {
			s.intervals = s.intervals[len(s.intervals)-512:]
		}
	}
	s.lastAt = res.Timestamp
	s.tmu.Unlock()
}

// Telemetry is a point-in-time snapshot of session activity.
type Telemetry struct {
	State          string  `json:"state"`
	SessionID      int64   `json:"session_id,string"`
	Device         string  `json:"device"`
	Decodes        int64   `json:"decodes"`
	MeanInterval   float64 `json:"mean_interval_s"`
	MedianInterval float64 `json:"median_interval_s"`
}

// Stats summarizes the current session for the status API.
func (s *Session) Stats() Telemetry {
	s.mu.Lock()
	t := Telemetry{
		State:     s.state.String(),
		SessionID: s.sessionID,
		Device:    s.device,
	}
	s.mu.Unlock()

	s.tmu.Lock()
	t.Decodes = s.decodes
	if len(s.intervals) > 0 {
		data := stats.Float64Data(s.intervals)
		t.MeanInterval, _ = stats.Mean(data)
		t.MedianInterval, _ = stats.Median(data)
	}
	s.tmu.Unlock()
	return t
}
