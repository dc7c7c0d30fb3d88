// Package catalog is the HTTP JSON client for the remote product catalog.
// The service itself is a black box; this client never caches and never
// patches, every read is a verbatim snapshot of server truth.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/guonaihong/gout"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/pajakoo/shoppApp/config"
	"github.com/pajakoo/shoppApp/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned by LookupProduct when the barcode has no record.
// Callers treat it as the normal new-product path, not a failure.
var ErrNotFound = errors.New("product not found")

// Client talks to the remote catalog service.
type Client struct {
	base    string
	timeout time.Duration
}

// NewClient builds a client from the immutable catalog configuration.
func NewClient(cfg config.CatalogConfig) *Client {
	return &Client{
		base:    strings.TrimRight(cfg.URL, "/"),
		timeout: cfg.Timeout.Duration(),
	}
}

func (c *Client) url(path string) string {
	return c.base + path
}

// deadline bounds a call by the configured timeout. gout treats SetTimeout
// and WithContext as mutually exclusive, so the timeout rides on the caller's
// context instead; cancellation always wins.
func (c *Client) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// ProductCreate is the POST /api/products request body.
type ProductCreate struct {
	Barcode  string           `json:"barcode"`
	Name     string           `json:"name"`
	Price    float64          `json:"price"`
	Store    string           `json:"store"`
	Location *domain.Location `json:"location,omitempty"`
}

// ListProducts fetches the full product list.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	body, code, err := c.get(ctx, "/api/products")
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	if code != http.StatusOK {
		return nil, errors.Wrapf(domain.ErrMutationFailure, "list products: status %d", code)
	}
	var products []domain.Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, errors.Wrap(err, "decode product list")
	}
	for i := range products {
		finishProduct(&products[i])
	}
	return products, nil
}

// LookupProduct fetches one product by barcode. ErrNotFound on 404.
func (c *Client) LookupProduct(ctx context.Context, barcode string) (*domain.Product, error) {
	body, code, err := c.get(ctx, "/api/products/"+barcode)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrLookupFailure, "lookup %s: %v", barcode, err)
	}
	switch code {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, errors.Wrapf(domain.ErrLookupFailure, "lookup %s: status %d", barcode, code)
	}
	var p domain.Product
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.Wrapf(domain.ErrLookupFailure, "decode %s: %v", barcode, err)
	}
	finishProduct(&p)
	return &p, nil
}

// CreateProduct posts a new product and returns the server record.
func (c *Client) CreateProduct(ctx context.Context, req ProductCreate) (*domain.Product, error) {
	ctx, cancel := c.deadline(ctx)
	defer cancel()
	var body []byte
	var code int
	err := gout.POST(c.url("/api/products")).
		WithContext(ctx).
		SetJSON(req).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrapf(domain.ErrMutationFailure, "create product: %v", err)
	}
	if code != http.StatusOK && code != http.StatusCreated {
		return nil, errors.Wrapf(domain.ErrMutationFailure, "create product: status %d", code)
	}
	var p domain.Product
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.Wrap(err, "decode created product")
	}
	finishProduct(&p)
	return &p, nil
}

// DeleteProduct removes a product by server id.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	ctx, cancel := c.deadline(ctx)
	defer cancel()
	var code int
	err := gout.DELETE(c.url("/api/products/" + id)).
		WithContext(ctx).
		Code(&code).
		Do()
	if err != nil {
		return errors.Wrapf(domain.ErrMutationFailure, "delete product %s: %v", id, err)
	}
	if code != http.StatusOK && code != http.StatusNoContent {
		return errors.Wrapf(domain.ErrMutationFailure, "delete product %s: status %d", id, code)
	}
	return nil
}

// ListStores fetches the full store list.
func (c *Client) ListStores(ctx context.Context) ([]domain.Store, error) {
	body, code, err := c.get(ctx, "/api/stores")
	if err != nil {
		return nil, errors.Wrap(err, "list stores")
	}
	if code != http.StatusOK {
		return nil, errors.Wrapf(domain.ErrMutationFailure, "list stores: status %d", code)
	}
	var stores []domain.Store
	if err := json.Unmarshal(body, &stores); err != nil {
		return nil, errors.Wrap(err, "decode store list")
	}
	return stores, nil
}

// CreateStore posts a new store by name and returns the server record.
func (c *Client) CreateStore(ctx context.Context, name string) (*domain.Store, error) {
	ctx, cancel := c.deadline(ctx)
	defer cancel()
	var body []byte
	var code int
	err := gout.POST(c.url("/api/stores")).
		WithContext(ctx).
		SetJSON(gout.H{"name": name}).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrapf(domain.ErrMutationFailure, "create store %q: %v", name, err)
	}
	if code != http.StatusOK && code != http.StatusCreated {
		return nil, errors.Wrapf(domain.ErrMutationFailure, "create store %q: status %d", name, code)
	}
	var s domain.Store
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, errors.Wrap(err, "decode created store")
	}
	if s.Name == "" {
		s.Name = name
	}
	return &s, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	ctx, cancel := c.deadline(ctx)
	defer cancel()
	var body []byte
	var code int
	err := gout.GET(c.url(path)).
		WithContext(ctx).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", path, err)
	}
	return body, code, nil
}

// finishProduct parses the server-assigned date, which has shipped in more
// than one format across catalog deployments.
func finishProduct(p *domain.Product) {
	if p.RawDate == "" {
		return
	}
	if t, err := dateparse.ParseAny(p.RawDate); err == nil {
		p.Date = t
	}
}
