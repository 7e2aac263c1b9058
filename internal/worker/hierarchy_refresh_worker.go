package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// HierarchyRefresher reloads the location hierarchy from the catalog.
type HierarchyRefresher interface {
	Refresh(ctx context.Context) error
}

// HierarchyRefreshWorker periodically replaces the cached location hierarchy.
type HierarchyRefreshWorker struct {
	cache    HierarchyRefresher
	interval time.Duration
}

// NewHierarchyRefreshWorker constructs a HierarchyRefreshWorker.
func NewHierarchyRefreshWorker(cache HierarchyRefresher, interval time.Duration) *HierarchyRefreshWorker {
	return &HierarchyRefreshWorker{
		cache:    cache,
		interval: interval,
	}
}

// Start warms the cache, then refreshes it on every tick until ctx is done.
func (w *HierarchyRefreshWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting hierarchy refresh worker")

	// Run immediately on start
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Hierarchy refresh worker stopped")
			return
		}
	}
}

func (w *HierarchyRefreshWorker) run(ctx context.Context) {
	start := time.Now()
	if err := w.cache.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to refresh location hierarchy")
		return
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Location hierarchy refreshed")
}
