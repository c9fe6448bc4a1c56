package approval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trade-approval-go/internal/chart"
	"trade-approval-go/internal/store"
)

// Sweeper periodically evicts trades older than the retention window and
// discards their chart artifacts. Eviction is an age-based policy, not a
// status transition: decided and undecided trades are removed alike.
type Sweeper struct {
	store     *store.Store
	renderer  chart.Renderer
	logger    *zap.Logger
	retention time.Duration
	interval  time.Duration
}

// NewSweeper creates an eviction sweeper.
func NewSweeper(st *store.Store, renderer chart.Renderer, retention, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:     st,
		renderer:  renderer,
		logger:    logger.Named("sweeper"),
		retention: retention,
		interval:  interval,
	}
}

// Run sweeps on a fixed interval until the context is cancelled. Sweeps run
// one at a time on this goroutine; the store's locking keeps an overlapping
// sweep harmless regardless.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting eviction sweep loop",
		zap.Duration("interval", s.interval),
		zap.Duration("retention", s.retention),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping eviction sweep loop")
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep performs a single eviction pass and returns the number of trades
// removed. Artifact deletion is best-effort: a failure is logged and the sweep
// carries on.
func (s *Sweeper) Sweep(now time.Time) int {
	evicted := s.store.EvictBefore(now.Add(-s.retention))
	for _, id := range evicted {
		if err := s.renderer.Delete(id); err != nil {
			s.logger.Warn("Failed to delete chart artifact", zap.String("trade_id", id), zap.Error(err))
		}
	}

	if len(evicted) > 0 {
		s.logger.Info("Evicted old trades", zap.Int("count", len(evicted)))
		AddEvicted(len(evicted))
		SetPendingTrades(s.store.PendingCount())
	}
	return len(evicted)
}
