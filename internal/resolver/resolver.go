// Package resolver maps debounced scan events to catalog data and settles
// store references at submission time.
package resolver

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pajakoo/shoppApp/internal/catalog"
	"github.com/pajakoo/shoppApp/internal/domain"
	"github.com/pajakoo/shoppApp/internal/metrics"
)

// Lookuper is the catalog read used to resolve a scan.
type Lookuper interface {
	LookupProduct(ctx context.Context, barcode string) (*domain.Product, error)
}

// Coordinator issues one async catalog lookup per scan event and pre-fills
// the form from the result. Lookups resolve out of order; a generation
// counter enforces last-scan-wins, and pre-fills never overwrite operator
// edits.
type Coordinator struct {
	catalog      Lookuper
	form         *Form
	pool         *ants.Pool
	prefillPrice bool
	gen          atomic.Int64
}

// NewCoordinator builds a coordinator with a bounded lookup pool.
func NewCoordinator(lookuper Lookuper, form *Form, workers int, prefillPrice bool) (*Coordinator, error) {
	if workers <= 0 {
		workers = 2
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "lookup pool")
	}
	return &Coordinator{
		catalog:      lookuper,
		form:         form,
		pool:         pool,
		prefillPrice: prefillPrice,
	}, nil
}

// Form returns the draft this coordinator fills.
func (c *Coordinator) Form() *Form {
	return c.form
}

// OnScan handles one debounced scan event: the barcode lands in the form
// immediately, the lookup runs on the pool. A lookup that loses the race to
// a newer scan, or to Invalidate, is discarded.
func (c *Coordinator) OnScan(ctx context.Context, ev domain.ScanEvent) {
	gen := c.gen.Add(1)
	c.form.ApplyScan(ev.Code)
	metrics.Record(metrics.MetricScan, 1)

	err := c.pool.Submit(func() {
		p, err := c.catalog.LookupProduct(ctx, ev.Code)
		metrics.Record(metrics.MetricLookup, 1)
		if err != nil {
			// Not found and lookup failures both mean "new product";
			// neither blocks scanning or data entry.
			if !errors.Is(err, catalog.ErrNotFound) {
				zap.L().Warn("product lookup failed",
					zap.Int64("scan_id", ev.ID),
					zap.String("barcode", ev.Code),
					zap.Error(err),
				)
			}
			return
		}
		if c.gen.Load() != gen {
			zap.L().Debug("stale lookup discarded",
				zap.Int64("scan_id", ev.ID),
				zap.String("barcode", ev.Code),
			)
			return
		}
		c.form.Prefill(p, c.prefillPrice)
		zap.L().Info("form pre-filled from catalog",
			zap.String("barcode", ev.Code),
			zap.String("name", p.Name),
		)
	})
	if err != nil {
		zap.L().Warn("lookup submit rejected", zap.Error(err))
	}
}

// Invalidate discards every in-flight lookup result. Called after a
// successful submit so a late resolution cannot repopulate a cleared form.
func (c *Coordinator) Invalidate() {
	c.gen.Add(1)
}

// Release shuts the lookup pool down.
func (c *Coordinator) Release() {
	c.pool.Release()
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
