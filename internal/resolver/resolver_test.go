package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pajakoo/shoppApp/internal/catalog"
	"github.com/pajakoo/shoppApp/internal/domain"
)

type fakeLookup struct {
	mu       sync.Mutex
	products map[string]domain.Product
	gates    map[string]chan struct{}
	calls    []string
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		products: make(map[string]domain.Product),
		gates:    make(map[string]chan struct{}),
	}
}

func (f *fakeLookup) gate(code string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[code] = ch
	return ch
}

func (f *fakeLookup) LookupProduct(ctx context.Context, barcode string) (*domain.Product, error) {
	f.mu.Lock()
	f.calls = append(f.calls, barcode)
	gate := f.gates[barcode]
	p, ok := f.products[barcode]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, catalog.ErrNotFound
	}
	out := p
	return &out, nil
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestCoordinator(t *testing.T, lookup Lookuper, prefillPrice bool) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(lookup, NewForm(), 2, prefillPrice)
	require.NoError(t, err)
	t.Cleanup(c.Release)
	return c
}

func TestCoordinatorPrefillsOnHit(t *testing.T) {
	lookup := newFakeLookup()
	lookup.products["5901234123457"] = domain.Product{Name: "Milk 1L", Price: 2.49}
	c := newTestCoordinator(t, lookup, false)

	c.OnScan(context.Background(), domain.ScanEvent{ID: 1, Code: "5901234123457"})

	require.Eventually(t, func() bool {
		return c.Form().Snapshot().Name == "Milk 1L"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "5901234123457", c.Form().Snapshot().Barcode)
}

func TestCoordinatorMissLeavesNameEmpty(t *testing.T) {
	lookup := newFakeLookup()
	c := newTestCoordinator(t, lookup, false)

	c.OnScan(context.Background(), domain.ScanEvent{ID: 1, Code: "000"})

	require.Eventually(t, func() bool { return lookup.callCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	draft := c.Form().Snapshot()
	assert.Equal(t, "000", draft.Barcode, "not found is the normal new-product path")
	assert.Empty(t, draft.Name)
}

func TestCoordinatorLastScanWins(t *testing.T) {
	lookup := newFakeLookup()
	lookup.products["A"] = domain.Product{Name: "Stale"}
	lookup.products["B"] = domain.Product{Name: "Fresh"}
	gateA := lookup.gate("A")
	c := newTestCoordinator(t, lookup, false)

	ctx := context.Background()
	c.OnScan(ctx, domain.ScanEvent{ID: 1, Code: "A"})
	c.OnScan(ctx, domain.ScanEvent{ID: 2, Code: "B"})

	require.Eventually(t, func() bool {
		return c.Form().Snapshot().Name == "Fresh"
	}, time.Second, 5*time.Millisecond)

	// The older lookup resolves after the newer one and must be dropped.
	close(gateA)
	time.Sleep(50 * time.Millisecond)
	draft := c.Form().Snapshot()
	assert.Equal(t, "Fresh", draft.Name)
	assert.Equal(t, "B", draft.Barcode)
}

func TestCoordinatorLateResultNeverOverwritesEdit(t *testing.T) {
	lookup := newFakeLookup()
	lookup.products["A"] = domain.Product{Name: "Catalog"}
	gate := lookup.gate("A")
	c := newTestCoordinator(t, lookup, false)

	c.OnScan(context.Background(), domain.ScanEvent{ID: 1, Code: "A"})
	c.Form().Set(FieldName, "Edited")
	close(gate)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "Edited", c.Form().Snapshot().Name)
}

func TestCoordinatorInvalidateDropsInFlight(t *testing.T) {
	lookup := newFakeLookup()
	lookup.products["A"] = domain.Product{Name: "Late"}
	gate := lookup.gate("A")
	c := newTestCoordinator(t, lookup, false)

	c.OnScan(context.Background(), domain.ScanEvent{ID: 1, Code: "A"})
	c.Form().Clear()
	c.Invalidate()
	close(gate)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, c.Form().Snapshot().Name,
		"a late lookup must not repopulate a cleared form")
}

func TestCoordinatorCancelledContextDropsLookup(t *testing.T) {
	lookup := newFakeLookup()
	lookup.products["A"] = domain.Product{Name: "Late"}
	gate := lookup.gate("A")
	c := newTestCoordinator(t, lookup, false)

	ctx, cancel := context.WithCancel(context.Background())
	c.OnScan(ctx, domain.ScanEvent{ID: 1, Code: "A"})
	cancel()
	close(gate)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, c.Form().Snapshot().Name)
}
