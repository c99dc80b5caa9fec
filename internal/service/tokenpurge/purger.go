package tokenpurge

import (
	"context"
	"time"

	"github.com/nkiryanov/bookstore/internal/logger"
)

const defaultInterval = time.Hour

type tokenStore interface {
	Purge(ctx context.Context) (int64, error)
}

// Purger deletes expired token records on a fixed interval
type Purger struct {
	interval time.Duration
	store    tokenStore
	logger   logger.Logger
}

// Zero interval means one hour
func New(interval time.Duration, store tokenStore, l logger.Logger) *Purger {
	if interval <= 0 {
		interval = defaultInterval
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Purger{
		interval: interval,
		store:    store,
		logger:   l,
	}
}

// Run purges on every tick until context is done
// Returned channel is closed when the purger stopped
func (p *Purger) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting token purger", "interval", p.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Token purger stopped by context")
				return

			case <-ticker.C:
				deleted, err := p.store.Purge(ctx)
				if err != nil {
					p.logger.Error("Failed to purge tokens", "error", err)
					continue
				}
				p.logger.Debug("Expired tokens purged", "deleted", deleted)
			}
		}
	}()

	return idleStopped
}
