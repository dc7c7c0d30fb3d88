package resolver

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pajakoo/shoppApp/internal/domain"
)

// StoreAPI is the catalog surface the store resolver needs.
type StoreAPI interface {
	ListStores(ctx context.Context) ([]domain.Store, error)
	CreateStore(ctx context.Context, name string) (*domain.Store, error)
}

// StoreResolver matches typed store names against the known store list and
// decides create-vs-reuse at submission time. The known list is loaded once
// at mount and extended after each successful create. Concurrent creates of
// one name inside this process are collapsed by singleflight; two separate
// clients racing on the same new name can still produce duplicates, which
// the catalog API would need an upsert-by-name endpoint to rule out.
type StoreResolver struct {
	api StoreAPI

	mu     sync.RWMutex
	stores []domain.Store

	sf singleflight.Group
}

// NewStoreResolver builds a resolver with an empty known list.
func NewStoreResolver(api StoreAPI) *StoreResolver {
	return &StoreResolver{api: api}
}

// Load replaces the known store list from the catalog.
func (r *StoreResolver) Load(ctx context.Context) error {
	stores, err := r.api.ListStores(ctx)
	if err != nil {
		return errors.Wrap(err, "load stores")
	}
	r.mu.Lock()
	r.stores = stores
	r.mu.Unlock()
	zap.S().Infof("loaded %d known store(s)", len(stores))
	return nil
}

// Known returns a copy of the known store list.
func (r *StoreResolver) Known() []domain.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Store, len(r.stores))
	copy(out, r.stores)
	return out
}

// Suggest returns the known stores whose name contains input,
// case-insensitively. Empty input returns the full list.
func (r *StoreResolver) Suggest(input string) []domain.Store {
	needle := strings.ToLower(input)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Store, 0, len(r.stores))
	for _, s := range r.stores {
		if s.Name == "" {
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(s.Name), needle) {
			out = append(out, s)
		}
	}
	return out
}

// Resolve settles the typed store value for a submission. An exact
// (case-sensitive) match reuses the existing store with no mutation; a
// non-empty unmatched name is created remotely exactly once and added to
// the known list; empty input resolves to no store at all.
func (r *StoreResolver) Resolve(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if r.exists(name) {
		return name, nil
	}

	_, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check under the flight: an earlier caller may have
		// created it while this one queued.
		if r.exists(name) {
			return nil, nil
		}
		created, err := r.api.CreateStore(ctx, name)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.stores = append(r.stores, *created)
		r.mu.Unlock()
		zap.S().Infof("store created: %s", created.Name)
		return nil, nil
	})
	if err != nil {
		return "", errors.Wrapf(domain.ErrMutationFailure, "create store %q: %v", name, err)
	}
	return name, nil
}

func (r *StoreResolver) exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.stores {
		if s.Name == name {
			return true
		}
	}
	return false
}
