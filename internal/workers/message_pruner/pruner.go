// Package messagepruner bounds the consumed message set by removing replay
// records past the retention window. The window must comfortably exceed the
// source chain's finality plus any realistic relay delay, since a pruned id
// could in principle be replayed.
package messagepruner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/solbridge/bridge_service/internal/domain/repositories"
	"github.com/solbridge/bridge_service/pkg/logger"
	"github.com/solbridge/bridge_service/pkg/metrics"
)

// KeyCleaner removes expired idempotency keys alongside the message records.
type KeyCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Pruner runs the retention job on a cron schedule.
type Pruner struct {
	store  repositories.BridgeStore
	keys   KeyCleaner
	cron   *cron.Cron
	maxAge time.Duration
	log    *logger.Logger
}

// New creates a pruner keeping records for maxAge. keys may be nil.
func New(store repositories.BridgeStore, keys KeyCleaner, maxAge time.Duration, log *logger.Logger) *Pruner {
	return &Pruner{
		store:  store,
		keys:   keys,
		cron:   cron.New(),
		maxAge: maxAge,
		log:    log,
	}
}

// Start schedules the prune job with the given cron spec.
func (p *Pruner) Start(spec string) error {
	_, err := p.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		p.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	p.cron.Start()
	p.log.Info("Message pruner started", "spec", spec, "max_age", p.maxAge)
	return nil
}

// RunOnce prunes immediately.
func (p *Pruner) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-p.maxAge)
	removed, err := p.store.PruneConsumedMessages(ctx, cutoff)
	if err != nil {
		p.log.Error("Failed to prune consumed messages", "error", err)
		return
	}
	if removed > 0 {
		metrics.PrunedMessagesTotal.Add(float64(removed))
		p.log.Info("Pruned consumed messages", "removed", removed, "cutoff", cutoff)
	}

	if p.keys != nil {
		expired, err := p.keys.DeleteExpired(ctx)
		if err != nil {
			p.log.Error("Failed to delete expired idempotency keys", "error", err)
		} else if expired > 0 {
			p.log.Info("Deleted expired idempotency keys", "removed", expired)
		}
	}
}

// Stop halts the schedule and waits for a running job.
func (p *Pruner) Stop() error {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.log.Info("Message pruner stopped")
	return nil
}
