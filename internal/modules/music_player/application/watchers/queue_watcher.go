package watchers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultQueueCheckInterval is how often QueueWatcher looks for stalled queues.
const DefaultQueueCheckInterval = 30 * time.Second

// maxConcurrentChecks bounds how many sessions one tick works on at once.
const maxConcurrentChecks = 4

// NextTrackStarter starts the next queued track of an idle session.
type NextTrackStarter interface {
	TryPlayNext(ctx context.Context, guildID snowflake.ID) error
}

// QueueWatcher restarts playback for idle sessions that still have queued tracks.
// It is the safety net for completion callbacks that never arrived.
type QueueWatcher struct {
	repo       domain.SessionRepository
	connection ports.PlaybackConnection
	starter    NextTrackStarter
	interval   time.Duration

	// running is held for the duration of a tick; overlapping ticks are skipped.
	running sync.Mutex
}

// NewQueueWatcher creates a new QueueWatcher.
// A non-positive interval selects DefaultQueueCheckInterval.
func NewQueueWatcher(
	repo domain.SessionRepository,
	connection ports.PlaybackConnection,
	starter NextTrackStarter,
	interval time.Duration,
) *QueueWatcher {
	if interval <= 0 {
		interval = DefaultQueueCheckInterval
	}
	return &QueueWatcher{
		repo:       repo,
		connection: connection,
		starter:    starter,
		interval:   interval,
	}
}

// Run ticks until ctx is cancelled.
func (w *QueueWatcher) Run(ctx context.Context) error {
	return runTicker(ctx, w.interval, w.Tick)
}

// Tick checks every session once.
func (w *QueueWatcher) Tick(ctx context.Context) {
	if !w.running.TryLock() {
		slog.Debug("queue check still running, skipping tick")
		return
	}
	defer w.running.Unlock()

	var g errgroup.Group
	g.SetLimit(maxConcurrentChecks)

	for _, session := range w.repo.List() {
		guildID := session.GuildID()
		if w.connection.Status(guildID) != domain.StatusIdle || session.Queue.IsEmpty() {
			continue
		}

		g.Go(func() error {
			w.check(ctx, guildID)
			return nil
		})
	}

	// check never returns an error; failures are logged per session.
	_ = g.Wait()
}

func (w *QueueWatcher) check(ctx context.Context, guildID snowflake.ID) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while restarting queue", "guild", guildID, "panic", r)
		}
	}()

	slog.Debug("restarting stalled queue", "guild", guildID)
	if err := w.starter.TryPlayNext(ctx, guildID); err != nil {
		slog.Warn("failed to restart stalled queue", "guild", guildID, "error", err)
	}
}

// runTicker calls tick every interval until ctx is cancelled.
func runTicker(ctx context.Context, interval time.Duration, tick func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick(ctx)
		}
	}
}
