package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/svpecas/catalogd/config"
	"github.com/svpecas/catalogd/internal/blobstore"
	"github.com/svpecas/catalogd/internal/repository"
)

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StoreProvider provides blob store access
type StoreProvider interface {
	Store() blobstore.Store
}

// RepositoryProvider provides catalog repository access
type RepositoryProvider interface {
	Repository() *repository.CatalogRepository
}

// JournalProvider provides the pending-write journal
type JournalProvider interface {
	Journal() *repository.WriteJournal
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// BusProvider provides the mutation event bus
type BusProvider interface {
	Bus() EventBus.Bus
}

// AppContext combines all provider interfaces for full application context.
// Services should depend on specific providers or this combined interface.
type AppContext interface {
	ConfigProvider
	StoreProvider
	RepositoryProvider
	JournalProvider
	SchedulerProvider
	BusProvider
}
