// Package shop holds the catalog mutation controller: create/delete
// product plus the refetch-and-replace list snapshot.
package shop

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/pajakoo/shoppApp/internal/catalog"
	"github.com/pajakoo/shoppApp/internal/domain"
	"github.com/pajakoo/shoppApp/internal/resolver"
)

// CatalogAPI is the catalog surface the controller mutates through.
type CatalogAPI interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, req catalog.ProductCreate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Controller persists products and keeps the displayed list a verbatim
// snapshot of the remote catalog. It never patches the list locally; every
// mutation is followed by a full refetch, so server-assigned fields (id,
// date) can never drift. Mutations are not pipelined: a submit while one is
// in flight is rejected.
type Controller struct {
	api    CatalogAPI
	stores *resolver.StoreResolver
	form   *resolver.Form

	mu       sync.RWMutex
	products []domain.Product
	location *domain.Location

	busy      atomic.Bool
	onCreated func(domain.Product)
}

// NewController builds a controller over the given catalog surface.
func NewController(api CatalogAPI, stores *resolver.StoreResolver, form *resolver.Form) *Controller {
	return &Controller{api: api, stores: stores, form: form}
}

// OnCreated registers a hook invoked after each successful product create,
// before the list refresh.
func (c *Controller) OnCreated(fn func(domain.Product)) {
	c.onCreated = fn
}

// SetLocation records the session location attached to created products.
// A nil location means positioning failed; products are created without one.
func (c *Controller) SetLocation(loc *domain.Location) {
	c.mu.Lock()
	c.location = loc
	c.mu.Unlock()
}

// Products returns a copy of the last refreshed snapshot.
func (c *Controller) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Refresh fetches the full product list and replaces the local snapshot.
func (c *Controller) Refresh(ctx context.Context) error {
	products, err := c.api.ListProducts(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.products = products
	c.mu.Unlock()
	return nil
}

// CreateProduct validates the current draft, settles the store reference,
// issues the remote create and refreshes the list. On any failure the draft
// is left intact so the operator can retry; on success it is cleared.
func (c *Controller) CreateProduct(ctx context.Context) error {
	if !c.busy.CompareAndSwap(false, true) {
		return domain.ErrMutationInFlight
	}
	defer c.busy.Store(false)

	draft := c.form.Snapshot()
	price, err := validateDraft(draft)
	if err != nil {
		return err
	}

	storeName, err := c.stores.Resolve(ctx, draft.Store)
	if err != nil {
		return err
	}

	c.mu.RLock()
	loc := c.location
	c.mu.RUnlock()

	created, err := c.api.CreateProduct(ctx, catalog.ProductCreate{
		Barcode:  draft.Barcode,
		Name:     draft.Name,
		Price:    price,
		Store:    storeName,
		Location: loc,
	})
	if err != nil {
		return err
	}
	zap.L().Info("product created",
		zap.String("id", created.ID),
		zap.String("barcode", created.Barcode),
		zap.String("store", created.Store),
	)

	c.form.Clear()
	if c.onCreated != nil {
		c.onCreated(*created)
	}
	if err := c.Refresh(ctx); err != nil {
		// The create succeeded; a failed refetch only leaves the list
		// stale until the next refresh.
		zap.S().Warnf("list refresh after create failed: %v", err)
	}
	return nil
}

// DeleteProduct removes a product by id and refreshes the list. On failure
// the snapshot is left untouched; deleting an already-deleted id surfaces
// the server's error and nothing else.
func (c *Controller) DeleteProduct(ctx context.Context, id string) error {
	if !c.busy.CompareAndSwap(false, true) {
		return domain.ErrMutationInFlight
	}
	defer c.busy.Store(false)

	if id == "" {
		return domain.NewValidationError("id", "is required")
	}
	if err := c.api.DeleteProduct(ctx, id); err != nil {
		return err
	}
	zap.L().Info("product deleted", zap.String("id", id))
	if err := c.Refresh(ctx); err != nil {
		zap.S().Warnf("list refresh after delete failed: %v", err)
	}
	return nil
}

// ExportCSV writes the current snapshot as CSV.
func (c *Controller) ExportCSV(w io.Writer) error {
	products := c.Products()
	if err := gocsv.Marshal(&products, w); err != nil {
		return errors.Wrap(err, "export csv")
	}
	return nil
}

// validateDraft enforces the submission invariants: a product is never sent
// to the catalog without a barcode, and price must parse to a non-negative
// number (zero is valid).
func validateDraft(d domain.ProductDraft) (float64, error) {
	if d.Barcode == "" {
		return 0, domain.NewValidationError("barcode", "is required")
	}
	if d.Price == "" {
		return 0, domain.NewValidationError("price", "is required")
	}
	price, err := cast.ToFloat64E(d.Price)
	if err != nil {
		return 0, domain.NewValidationError("price", "must be a number")
	}
	if price < 0 {
		return 0, domain.NewValidationError("price", "must not be negative")
	}
	return price, nil
}
