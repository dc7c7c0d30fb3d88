package screen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	jsoniter "github.com/json-iterator/go"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pajakoo/shoppApp/config"
	"github.com/pajakoo/shoppApp/internal/app"
	"github.com/pajakoo/shoppApp/internal/catalog"
	"github.com/pajakoo/shoppApp/internal/domain"
	"github.com/pajakoo/shoppApp/internal/resolver"
	"github.com/pajakoo/shoppApp/internal/scanner"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fakeCatalogServer is an in-memory stand-in for the remote catalog service.
type fakeCatalogServer struct {
	mu       sync.Mutex
	products []domain.Product
	stores   []domain.Store
	creates  []catalog.ProductCreate
	nextID   int

	lookupGate chan struct{} // when set, lookups block until closed
}

func (f *fakeCatalogServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			f.mu.Lock()
			defer f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(f.products)
		case http.MethodPost:
			var req catalog.ProductCreate
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			f.nextID++
			f.creates = append(f.creates, req)
			p := domain.Product{
				ID:      "p" + string(rune('0'+f.nextID)),
				Barcode: req.Barcode,
				Name:    req.Name,
				Price:   req.Price,
				Store:   req.Store,
				RawDate: "2023-06-01T10:00:00Z",
			}
			f.products = append(f.products, p)
			f.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(p)
		}
	})
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		barcode := strings.TrimPrefix(r.URL.Path, "/api/products/")
		f.mu.Lock()
		gate := f.lookupGate
		f.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range f.products {
			if p.Barcode == barcode {
				_ = json.NewEncoder(w).Encode(p)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/stores", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(f.stores)
		case http.MethodPost:
			var req struct {
				Name string `json:"name"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			s := domain.Store{ID: "s" + req.Name, Name: req.Name}
			f.stores = append(f.stores, s)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(s)
		}
	})
	return mux
}

type testCtx struct {
	cfg    *config.AppConfig
	bus    EventBus.Bus
	client *catalog.Client
	prefs  *app.PrefStore

	mu   sync.Mutex
	next int64
}

func newTestCtx(t *testing.T, srvURL string, continuous bool) *testCtx {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Catalog.URL = srvURL
	cfg.Catalog.Timeout = config.Duration(2 * time.Second)
	cfg.Scanner.Debounce = config.Duration(time.Second)
	cfg.Variant = map[string]interface{}{
		"continuous": continuous,
		"typeahead":  true,
	}
	prefs, err := app.OpenPrefStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = prefs.Close() })
	return &testCtx{
		cfg:    cfg,
		bus:    EventBus.New(),
		client: catalog.NewClient(cfg.Catalog),
		prefs:  prefs,
	}
}

func (c *testCtx) Config() *config.AppConfig { return c.cfg }
func (c *testCtx) Bus() EventBus.Bus         { return c.bus }
func (c *testCtx) Catalog() *catalog.Client  { return c.client }
func (c *testCtx) Scheduler() *cron.Cron     { return nil }
func (c *testCtx) Prefs() *app.PrefStore     { return c.prefs }

func (c *testCtx) NextID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	return c.next
}

type fakeEnum struct {
	devices []domain.CameraDevice
}

func (f *fakeEnum) ListCameras(ctx context.Context) ([]domain.CameraDevice, error) {
	return f.devices, nil
}

type fakeStream struct {
	results chan domain.DecodeResult
	once    sync.Once
}

func (f *fakeStream) Results() <-chan domain.DecodeResult { return f.results }
func (f *fakeStream) Close() error {
	f.once.Do(func() { close(f.results) })
	return nil
}

type fakeDriver struct {
	mu      sync.Mutex
	opened  []string
	streams []*fakeStream
}

func (f *fakeDriver) Open(ctx context.Context, deviceID string, c domain.Constraints) (scanner.DecodeStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &fakeStream{results: make(chan domain.DecodeResult, 8)}
	f.opened = append(f.opened, deviceID)
	f.streams = append(f.streams, st)
	return st, nil
}

func (f *fakeDriver) last() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streams) == 0 {
		return nil
	}
	return f.streams[len(f.streams)-1]
}

type fixedLocator struct {
	loc domain.Location
}

func (l fixedLocator) Current(ctx context.Context) (domain.Location, error) {
	return l.loc, nil
}

func TestScanPrefillSubmit(t *testing.T) {
	fake := &fakeCatalogServer{
		products: []domain.Product{{
			ID:      "p0",
			Barcode: "5901234123457",
			Name:    "Milk 1L",
			Price:   2.49,
			Store:   "Billa",
		}},
		stores: []domain.Store{{ID: "s1", Name: "Billa"}},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	actx := newTestCtx(t, srv.URL, false)
	scr, err := NewScreen(actx, &fakeEnum{}, nil, fixedLocator{loc: domain.Location{Lat: 42.7, Lng: 23.3}})
	require.NoError(t, err)

	scr.Mount(context.Background())
	defer scr.Unmount()

	scr.Scan(domain.DecodeResult{Code: "5901234123457"})

	require.Eventually(t, func() bool {
		return scr.Form().Snapshot().Name == "Milk 1L"
	}, 2*time.Second, 10*time.Millisecond, "lookup should pre-fill the name")

	draft := scr.Form().Snapshot()
	assert.Equal(t, "5901234123457", draft.Barcode)

	scr.Form().Set(resolver.FieldPrice, "2.49")
	scr.Form().Set(resolver.FieldStore, "Billa")
	require.NoError(t, scr.Submit(context.Background()))

	// Draft cleared, list refreshed with the server record.
	assert.True(t, scr.Form().Snapshot().Empty())
	products := scr.Controller().Products()
	require.Len(t, products, 2)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.creates, 1)
	created := fake.creates[0]
	assert.Equal(t, "5901234123457", created.Barcode)
	assert.Equal(t, "Milk 1L", created.Name)
	assert.Equal(t, 2.49, created.Price)
	assert.Equal(t, "Billa", created.Store)
	require.NotNil(t, created.Location, "session location should ride along")
	assert.Equal(t, 42.7, created.Location.Lat)
}

func TestDuplicateScanDebounced(t *testing.T) {
	fake := &fakeCatalogServer{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	actx := newTestCtx(t, srv.URL, false)
	scr, err := NewScreen(actx, &fakeEnum{}, nil, nil)
	require.NoError(t, err)
	scr.Mount(context.Background())
	defer scr.Unmount()

	var mu sync.Mutex
	var events []domain.ScanEvent
	handler := func(ev domain.ScanEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	require.NoError(t, actx.bus.Subscribe(app.TopicScanEvent, handler))
	defer func() { _ = actx.bus.Unsubscribe(app.TopicScanEvent, handler) }()

	// A held barcode decodes the same code many times within the window.
	for i := 0; i < 5; i++ {
		scr.Scan(domain.DecodeResult{Code: "4006381333931"})
	}
	scr.Scan(domain.DecodeResult{Code: "5901234123457"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, "4006381333931", events[0].Code)
	assert.Equal(t, "5901234123457", events[1].Code)
}

func TestUnmountDropsLateLookup(t *testing.T) {
	gate := make(chan struct{})
	fake := &fakeCatalogServer{
		products: []domain.Product{{
			ID: "p0", Barcode: "5901234123457", Name: "Milk 1L", Price: 2.49,
		}},
		lookupGate: gate,
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	actx := newTestCtx(t, srv.URL, false)
	scr, err := NewScreen(actx, &fakeEnum{}, nil, nil)
	require.NoError(t, err)
	scr.Mount(context.Background())

	scr.Scan(domain.DecodeResult{Code: "5901234123457"})
	scr.Unmount()
	close(gate)

	// The lookup was cancelled with the screen; even once the server is
	// able to answer, nothing lands in the form.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "", scr.Form().Snapshot().Name)
	assert.Equal(t, "5901234123457", scr.Form().Snapshot().Barcode)
}

func TestContinuousVariantStartsSession(t *testing.T) {
	fake := &fakeCatalogServer{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	actx := newTestCtx(t, srv.URL, true)
	driver := &fakeDriver{}
	enum := &fakeEnum{devices: []domain.CameraDevice{
		{ID: "cam-front", Label: "Front"},
		{ID: "cam-rear", Label: "Rear"},
	}}
	scr, err := NewScreen(actx, enum, driver, nil)
	require.NoError(t, err)

	scr.Mount(context.Background())
	defer scr.Unmount()

	require.Eventually(t, func() bool {
		return scr.Session().State() == scanner.StateActive
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "cam-front", scr.Session().Device())

	// A camera frame feeds the same pipeline as manual entry.
	driver.last().results <- domain.DecodeResult{Code: "4006381333931", Timestamp: time.Now()}
	require.Eventually(t, func() bool {
		return scr.Form().Snapshot().Barcode == "4006381333931"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeviceSwitchRestartsSession(t *testing.T) {
	fake := &fakeCatalogServer{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	actx := newTestCtx(t, srv.URL, true)
	driver := &fakeDriver{}
	enum := &fakeEnum{devices: []domain.CameraDevice{
		{ID: "cam-front", Label: "Front"},
		{ID: "cam-rear", Label: "Rear"},
	}}
	scr, err := NewScreen(actx, enum, driver, nil)
	require.NoError(t, err)

	scr.Mount(context.Background())
	defer scr.Unmount()

	require.Eventually(t, func() bool {
		return scr.Session().State() == scanner.StateActive
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, scr.Registry().Select("cam-rear"))
	require.Eventually(t, func() bool {
		return scr.Session().Device() == "cam-rear" &&
			scr.Session().State() == scanner.StateActive
	}, 2*time.Second, 10*time.Millisecond)

	driver.mu.Lock()
	opened := append([]string(nil), driver.opened...)
	driver.mu.Unlock()
	assert.Equal(t, []string{"cam-front", "cam-rear"}, opened)
}

func TestSubmitPersistsStorePreference(t *testing.T) {
	fake := &fakeCatalogServer{stores: []domain.Store{{ID: "s1", Name: "Billa"}}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	actx := newTestCtx(t, srv.URL, false)
	scr, err := NewScreen(actx, &fakeEnum{}, nil, nil)
	require.NoError(t, err)
	scr.Mount(context.Background())
	defer scr.Unmount()

	scr.Form().Set(resolver.FieldBarcode, "5901234123457")
	scr.Form().Set(resolver.FieldName, "Milk 1L")
	scr.Form().Set(resolver.FieldPrice, "2.49")
	scr.Form().Set(resolver.FieldStore, "Billa")
	require.NoError(t, scr.Submit(context.Background()))

	var last string
	found, err := actx.prefs.Get(app.PrefLastStore, &last)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Billa", last)
}
