// Package metrics keeps local time series of scanner activity under the
// application workdir.
package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
)

const (
	MetricDecode = "scanner_decode_total"
	MetricScan   = "scanner_scan_total"
	MetricLookup = "catalog_lookup_total"
)

var (
	mu      sync.Mutex
	storage tstorage.Storage
)

// InitMetrics opens the metrics store under workdir. Safe to call once.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	if storage != nil {
		return nil
	}
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "open metrics storage")
	}
	storage = s
	return nil
}

// Record appends one observation to the named series. A nil store (metrics
// never initialized) is a no-op so the scanner path never depends on it.
func Record(metric string, value float64) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return
	}
	_ = s.InsertRows([]tstorage.Row{{
		Metric:    metric,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
	}})
}

// Point is one sample returned by Query.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Query returns the samples of a series between start and end (unix seconds).
func Query(metric string, start, end int64) ([]Point, error) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return nil, nil
	}
	points, err := s.Select(metric, nil, start, end)
	if err != nil {
		if errors.Is(err, tstorage.ErrNoDataPoints) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "select %s", metric)
	}
	out := make([]Point, 0, len(points))
	for _, p := range points {
		out = append(out, Point{Timestamp: p.Timestamp, Value: p.Value})
	}
	return out, nil
}

// Close flushes and closes the metrics store.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
