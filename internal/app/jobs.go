package app

import (
	"context"
	"time"

	"github.com/svpecas/catalogd/config"
	"go.uber.org/zap"
)

// Event topics published by the admin API and consumed here.
const (
	TopicProductSaved   = "product.saved"
	TopicProductDeleted = "product.deleted"
	TopicCatalogSaved   = "catalog.saved"
	TopicCatalogDeleted = "catalog.deleted"
	TopicOrderRequested = "order.requested"
)

// initAudit subscribes an audit logger to every mutation topic so each
// change shows up in the log with its actor-facing key.
func (a *Application) initAudit() {
	audit := func(topic string) func(key string, detail string) {
		return func(key string, detail string) {
			zap.L().Info("audit",
				zap.String("event", topic),
				zap.String("key", key),
				zap.String("detail", detail))
		}
	}
	for _, topic := range []string{
		TopicProductSaved, TopicProductDeleted,
		TopicCatalogSaved, TopicCatalogDeleted,
		TopicOrderRequested,
	} {
		if err := a.bus.Subscribe(topic, audit(topic)); err != nil {
			zap.L().Error("failed to subscribe audit handler", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// initJobs registers the scheduled maintenance jobs. The only one today is
// the pending-upload retry: writes that failed mid-save sit in the journal
// and get replayed until they land.
func (a *Application) initJobs(cfg *config.AppConfig) {
	spec := cfg.Catalog.RetryJobSpec
	if spec == "" {
		spec = "@every 5m"
	}
	_, err := a.sched.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		flushed, err := a.journal.RetryPending(ctx)
		if err != nil {
			zap.L().Error("retry job failed", zap.Error(err))
			return
		}
		if flushed > 0 {
			zap.L().Info("retry job flushed pending writes", zap.Int("count", flushed))
		}
	})
	if err != nil {
		zap.L().Error("failed to register retry job", zap.Error(err))
	}
}
