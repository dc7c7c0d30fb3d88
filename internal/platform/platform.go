// Package platform holds the host-side collaborators the screen consumes:
// scanner device enumeration, the decode stream and positioning. The decode
// engine itself lives in the scanner hardware (or in the browser for the
// camera variant, which feeds the manual scan endpoint); nothing here
// decodes frames.
package platform

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/pajakoo/shoppApp/internal/domain"
	"github.com/pajakoo/shoppApp/internal/scanner"
)

// DevEnumerator lists attached barcode scanner devices by glob. Serial and
// HID scanners show up as tty character devices; the default patterns cover
// the common ones.
type DevEnumerator struct {
	Patterns []string
}

// NewDevEnumerator returns an enumerator over the default device patterns.
func NewDevEnumerator() *DevEnumerator {
	return &DevEnumerator{Patterns: []string{"/dev/ttyACM*", "/dev/ttyUSB*"}}
}

// ListCameras enumerates scanner inputs once. No matching device is not an
// error; an empty snapshot just disables hardware scanning.
func (e *DevEnumerator) ListCameras(_ context.Context) ([]domain.CameraDevice, error) {
	var devices []domain.CameraDevice
	for _, pattern := range e.Patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", pattern)
		}
		for _, path := range matches {
			devices = append(devices, domain.CameraDevice{
				ID:    path,
				Label: filepath.Base(path),
			})
		}
	}
	return devices, nil
}

// LineDriver opens a scanner device and emits one decode result per
// newline-terminated code the hardware sends. An empty device id falls back
// to stdin, which doubles as the default input when enumeration is not
// possible.
type LineDriver struct{}

// Open acquires the device and starts the read loop. Capture constraints
// are advisory and have no meaning for a hardware scanner; they are logged
// and ignored.
func (d *LineDriver) Open(ctx context.Context, deviceID string, c domain.Constraints) (scanner.DecodeStream, error) {
	var (
		file  *os.File
		owned bool
	)
	if deviceID == "" {
		file = os.Stdin
	} else {
		f, err := os.Open(deviceID)
		if err != nil {
			return nil, errors.Wrapf(err, "open scanner device %s", deviceID)
		}
		file = f
		owned = true
	}
	zap.S().Debugf("scanner stream open on %s (constraints %v ignored)", file.Name(), c)

	s := &lineStream{
		file:    file,
		owned:   owned,
		results: make(chan domain.DecodeResult),
	}
	go s.read(ctx)
	return s, nil
}

var _ scanner.Driver = (*LineDriver)(nil)

type lineStream struct {
	file    *os.File
	owned   bool
	results chan domain.DecodeResult
	once    sync.Once
}

func (s *lineStream) Results() <-chan domain.DecodeResult {
	return s.results
}

func (s *lineStream) Close() error {
	var err error
	s.once.Do(func() {
		if s.owned {
			err = s.file.Close()
		}
	})
	return err
}

func (s *lineStream) read(ctx context.Context) {
	defer close(s.results)
	sc := bufio.NewScanner(s.file)
	for sc.Scan() {
		code := strings.TrimSpace(sc.Text())
		if code == "" {
			continue
		}
		select {
		case s.results <- domain.DecodeResult{Code: code, Timestamp: time.Now()}:
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		zap.S().Warnf("scanner read loop ended: %v", err)
	}
}

// EnvLocator reads the session position from SHOPPAPP_LAT / SHOPPAPP_LNG.
// Headless deployments sit in one place; when the variables are unset the
// locator fails and products are created without a location.
type EnvLocator struct{}

func (EnvLocator) Current(_ context.Context) (domain.Location, error) {
	latStr, lngStr := os.Getenv("SHOPPAPP_LAT"), os.Getenv("SHOPPAPP_LNG")
	if latStr == "" || lngStr == "" {
		return domain.Location{}, errors.New("no position configured")
	}
	lat, err := cast.ToFloat64E(latStr)
	if err != nil {
		return domain.Location{}, errors.Wrap(err, "parse SHOPPAPP_LAT")
	}
	lng, err := cast.ToFloat64E(lngStr)
	if err != nil {
		return domain.Location{}, errors.Wrap(err, "parse SHOPPAPP_LNG")
	}
	return domain.Location{Lat: lat, Lng: lng}, nil
}
