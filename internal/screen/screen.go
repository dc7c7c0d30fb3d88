// Package screen wires the scan-to-catalog pipeline into the single
// operator screen this application is. The legacy code base carried five
// near-identical copies of it; the differences between them survive only as
// variant flags in the configuration.
package screen

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pajakoo/shoppApp/config"
	"github.com/pajakoo/shoppApp/internal/app"
	"github.com/pajakoo/shoppApp/internal/device"
	"github.com/pajakoo/shoppApp/internal/domain"
	"github.com/pajakoo/shoppApp/internal/resolver"
	"github.com/pajakoo/shoppApp/internal/scanner"
	"github.com/pajakoo/shoppApp/internal/shop"
)

// Locator is the platform positioning collaborator. A failing locator
// degrades gracefully: products are created without a location.
type Locator interface {
	Current(ctx context.Context) (domain.Location, error)
}

// Screen owns the whole pipeline: device registry, decode session,
// debouncer, resolution coordinator, store resolver and mutation
// controller. Mount brings it up, Unmount cancels everything outstanding.
type Screen struct {
	actx    app.AppContext
	variant config.VariantConfig

	registry    *device.Registry
	session     *scanner.Session
	debouncer   *scanner.Debouncer
	coordinator *resolver.Coordinator
	stores      *resolver.StoreResolver
	controller  *shop.Controller
	locator     Locator

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	mounted  bool
	onSelect func(id string)
}

// NewScreen builds the screen from configuration and the three platform
// collaborators.
func NewScreen(actx app.AppContext, enum device.Enumerator, driver scanner.Driver, locator Locator) (*Screen, error) {
	cfg := actx.Config()
	variant, err := cfg.VariantFlags()
	if err != nil {
		return nil, err
	}

	constraints := domain.Constraints{
		AspectRatio: cfg.Scanner.AspectRatio,
		FocusMode:   cfg.Scanner.FocusMode,
		Width:       cfg.Scanner.Width,
		Height:      cfg.Scanner.Height,
	}
	form := resolver.NewForm()
	coordinator, err := resolver.NewCoordinator(actx.Catalog(), form, cfg.Scanner.LookupWorkers, variant.PrefillPrice)
	if err != nil {
		return nil, err
	}
	stores := resolver.NewStoreResolver(actx.Catalog())

	s := &Screen{
		actx:        actx,
		variant:     variant,
		registry:    device.NewRegistry(actx, enum),
		session:     scanner.NewSession(driver, constraints, actx),
		debouncer:   scanner.NewDebouncer(cfg.Scanner.Debounce.Duration()),
		coordinator: coordinator,
		stores:      stores,
		controller:  shop.NewController(actx.Catalog(), stores, form),
		locator:     locator,
	}
	s.controller.OnCreated(s.created)
	return s, nil
}

// Mount loads the catalog snapshots, enumerates cameras, captures the
// session location and, for continuous variants, starts the decode
// session. Every failure here is logged and non-fatal; the screen stays
// interactive for manual entry.
func (s *Screen) Mount(ctx context.Context) {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mounted = true
	runCtx := s.ctx
	s.mu.Unlock()

	if err := s.controller.Refresh(runCtx); err != nil {
		zap.S().Warnf("initial product fetch failed: %v", err)
	}
	if err := s.stores.Load(runCtx); err != nil {
		zap.S().Warnf("initial store fetch failed: %v", err)
	}

	// Positioning runs independently of enumeration; whichever finishes
	// first wins nothing, they touch different state.
	go s.captureLocation(runCtx)

	if s.variant.Continuous {
		s.onSelect = func(id string) { s.restart(id) }
		if err := s.actx.Bus().Subscribe(app.TopicDeviceSelected, s.onSelect); err != nil {
			zap.S().Errorf("device selection subscription failed: %v", err)
		}
	}

	if err := s.registry.Refresh(runCtx); err != nil {
		zap.S().Warnf("camera enumeration failed, manual entry only: %v", err)
		if s.variant.Continuous {
			// No enumeration does not mean no camera; fall back to
			// the driver's default input.
			s.restart("")
		}
	} else if s.variant.Continuous && s.registry.Selected() == "" {
		s.restart("")
	}
}

// Unmount tears the screen down: the decode session is stopped, every
// outstanding lookup and mutation is cancelled, late completions are
// dropped.
func (s *Screen) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	cancel := s.cancel
	onSelect := s.onSelect
	s.mu.Unlock()

	if onSelect != nil {
		_ = s.actx.Bus().Unsubscribe(app.TopicDeviceSelected, onSelect)
	}
	cancel()
	s.session.Stop()
	s.coordinator.Invalidate()
	s.coordinator.Release()
	zap.L().Info("screen unmounted")
}

// Scan feeds one decode result through the debounced pipeline. The decode
// session calls it for camera frames; manual barcode entry goes through the
// exact same path.
func (s *Screen) Scan(res domain.DecodeResult) {
	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now()
	}
	s.actx.Bus().Publish(app.TopicDecodeResult, res)

	code, fire := s.debouncer.Observe(res)
	if !fire {
		return
	}
	ev := domain.ScanEvent{ID: s.actx.NextID(), Code: code}
	s.actx.Bus().Publish(app.TopicScanEvent, ev)

	s.mu.Lock()
	runCtx := s.ctx
	mounted := s.mounted
	s.mu.Unlock()
	if !mounted {
		return
	}
	s.coordinator.OnScan(runCtx, ev)
}

// Submit validates and persists the current draft.
func (s *Screen) Submit(ctx context.Context) error {
	return s.controller.CreateProduct(ctx)
}

// Registry exposes the device registry.
func (s *Screen) Registry() *device.Registry { return s.registry }

// Session exposes the decode session.
func (s *Screen) Session() *scanner.Session { return s.session }

// Controller exposes the mutation controller.
func (s *Screen) Controller() *shop.Controller { return s.controller }

// Stores exposes the store resolver.
func (s *Screen) Stores() *resolver.StoreResolver { return s.stores }

// Form exposes the draft form.
func (s *Screen) Form() *resolver.Form { return s.coordinator.Form() }

// Variant exposes the resolved variant flags.
func (s *Screen) Variant() config.VariantConfig { return s.variant }

// restart switches the decode session to the given device. The session
// handles the stop-then-start transition; a failure leaves it idle and the
// operator may pick another device.
func (s *Screen) restart(deviceID string) {
	s.mu.Lock()
	runCtx := s.ctx
	mounted := s.mounted
	s.mu.Unlock()
	if !mounted {
		return
	}
	if err := s.session.Start(runCtx, deviceID, s.Scan); err != nil {
		zap.S().Warnf("decode session start failed: %v", err)
	}
}

func (s *Screen) captureLocation(ctx context.Context) {
	if s.locator == nil {
		return
	}
	capCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	loc, err := s.locator.Current(capCtx)
	if err != nil {
		zap.S().Warnf("positioning failed, products will carry no location: %v", err)
		return
	}
	s.controller.SetLocation(&loc)
	zap.L().Info("session location captured",
		zap.Float64("lat", loc.Lat),
		zap.Float64("lng", loc.Lng),
	)
}

// created runs after each successful product create: in-flight lookups are
// invalidated so they cannot repopulate the cleared form, the debouncer is
// reset so the operator can immediately re-scan, and the store preference
// is remembered.
func (s *Screen) created(p domain.Product) {
	s.coordinator.Invalidate()
	s.debouncer.Reset()
	if p.Store != "" {
		if err := s.actx.Prefs().Put(app.PrefLastStore, p.Store); err != nil {
			zap.S().Debugf("store preference not saved: %v", err)
		}
	}
}
