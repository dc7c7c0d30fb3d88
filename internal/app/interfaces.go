package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"

	"github.com/pajakoo/shoppApp/config"
	"github.com/pajakoo/shoppApp/internal/catalog"
)

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// BusProvider provides the in-process event bus
type BusProvider interface {
	Bus() EventBus.Bus
}

// CatalogProvider provides the remote catalog client
type CatalogProvider interface {
	Catalog() *catalog.Client
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// PrefsProvider provides the local operator preference store
type PrefsProvider interface {
	Prefs() *PrefStore
}

// IDProvider provides process-unique ids for log correlation
type IDProvider interface {
	NextID() int64
}

// AppContext combines all provider interfaces for full application context.
// Components should depend on specific providers or this combined interface.
type AppContext interface {
	ConfigProvider
	BusProvider
	CatalogProvider
	SchedulerProvider
	PrefsProvider
	IDProvider
}
