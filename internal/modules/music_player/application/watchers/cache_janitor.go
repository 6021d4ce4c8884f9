package watchers

import (
	"context"
	"log/slog"
	"time"

	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// DefaultCacheSweepInterval is how often CacheJanitor looks for leftover downloads.
const DefaultCacheSweepInterval = 2 * time.Minute

// CacheJanitor deletes leftover downloads while no session is active.
type CacheJanitor struct {
	repo     domain.SessionRepository
	store    ports.MediaStore
	interval time.Duration
}

// NewCacheJanitor creates a new CacheJanitor.
// A non-positive interval selects DefaultCacheSweepInterval.
func NewCacheJanitor(
	repo domain.SessionRepository,
	store ports.MediaStore,
	interval time.Duration,
) *CacheJanitor {
	if interval <= 0 {
		interval = DefaultCacheSweepInterval
	}
	return &CacheJanitor{
		repo:     repo,
		store:    store,
		interval: interval,
	}
}

// Run ticks until ctx is cancelled.
func (j *CacheJanitor) Run(ctx context.Context) error {
	return runTicker(ctx, j.interval, j.Tick)
}

// Tick sweeps the cache unless a session may still be using it.
func (j *CacheJanitor) Tick(ctx context.Context) {
	if len(j.repo.List()) > 0 {
		return
	}

	removed, err := j.store.Sweep(ctx)
	if err != nil {
		slog.Warn("failed to sweep media cache", "error", err)
	}
	if removed > 0 {
		slog.Info("swept media cache", "removed", removed)
	}
}
