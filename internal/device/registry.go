// Package device tracks the camera inputs available to the operator.
package device

import (
	"context"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pajakoo/shoppApp/internal/app"
	"github.com/pajakoo/shoppApp/internal/domain"
)

// Enumerator is the platform collaborator that lists camera inputs.
// Enumeration may legitimately fail (permission denied, no media capability).
type Enumerator interface {
	ListCameras(ctx context.Context) ([]domain.CameraDevice, error)
}

// Registry holds the current camera snapshot and selection. It owns no
// camera locks; the decode session does the acquiring. Selection changes are
// published on the bus so the active session restarts against the new device.
type Registry struct {
	enum  Enumerator
	bus   EventBus.Bus
	prefs *app.PrefStore

	mu       sync.RWMutex
	devices  []domain.CameraDevice
	selected string
}

// NewRegistry builds a registry over the given enumerator.
func NewRegistry(actx app.AppContext, enum Enumerator) *Registry {
	return &Registry{
		enum:  enum,
		bus:   actx.Bus(),
		prefs: actx.Prefs(),
	}
}

// Refresh enumerates cameras once and replaces the snapshot wholesale. The
// persisted camera preference is restored when it still exists; otherwise
// the selection falls back to the first device.
func (r *Registry) Refresh(ctx context.Context) error {
	devices, err := r.enum.ListCameras(ctx)
	if err != nil {
		return errors.Wrapf(domain.ErrDeviceEnumeration, "%v", err)
	}

	r.mu.Lock()
	r.devices = devices
	selected := r.selected
	r.mu.Unlock()

	if selected == "" {
		var preferred string
		if ok, _ := r.prefs.Get(app.PrefSelectedCamera, &preferred); ok && r.has(preferred) {
			selected = preferred
		} else if len(devices) > 0 {
			selected = devices[0].ID
		}
	} else if !r.has(selected) {
		selected = ""
		if len(devices) > 0 {
			selected = devices[0].ID
		}
	}

	if selected != "" {
		if err := r.Select(selected); err != nil {
			return err
		}
	}
	zap.S().Infof("camera enumeration complete, %d device(s)", len(devices))
	return nil
}

// Devices returns a copy of the current snapshot.
func (r *Registry) Devices() []domain.CameraDevice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.CameraDevice, len(r.devices))
	copy(out, r.devices)
	return out
}

// Selected returns the currently selected device id; empty means the
// driver's default input.
func (r *Registry) Selected() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// Select records the selection, persists it and signals the decode session
// to restart. An empty id clears the selection back to the default input.
func (r *Registry) Select(id string) error {
	if id != "" && !r.has(id) {
		return errors.Wrapf(domain.ErrUnknownDevice, "%q", id)
	}

	r.mu.Lock()
	changed := r.selected != id
	r.selected = id
	r.mu.Unlock()

	if !changed {
		return nil
	}
	if err := r.prefs.Put(app.PrefSelectedCamera, id); err != nil {
		zap.S().Warnf("failed to persist camera preference: %v", err)
	}
	r.bus.Publish(app.TopicDeviceSelected, id)
	return nil
}

func (r *Registry) has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.ID == id {
			return true
		}
	}
	return false
}
