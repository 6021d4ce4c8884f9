package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// DefaultSettleDelay is how long TryPlayNext waits for the connection to settle
// before starting a track.
const DefaultSettleDelay = 500 * time.Millisecond

// PlaybackScheduler starts the next queued track of a session when the
// connection is idle.
type PlaybackScheduler struct {
	repo        domain.SessionRepository
	connection  ports.PlaybackConnection
	resolver    ports.MediaResolver
	store       ports.MediaStore
	notifier    ports.ChatNotifier
	publisher   ports.EventPublisher
	settleDelay time.Duration

	// chained tracks background TryPlayNext goroutines.
	chained sync.WaitGroup
}

// NewPlaybackScheduler creates a new PlaybackScheduler.
// A negative settleDelay selects DefaultSettleDelay.
func NewPlaybackScheduler(
	repo domain.SessionRepository,
	connection ports.PlaybackConnection,
	resolver ports.MediaResolver,
	store ports.MediaStore,
	notifier ports.ChatNotifier,
	publisher ports.EventPublisher,
	settleDelay time.Duration,
) *PlaybackScheduler {
	if settleDelay < 0 {
		settleDelay = DefaultSettleDelay
	}
	return &PlaybackScheduler{
		repo:        repo,
		connection:  connection,
		resolver:    resolver,
		store:       store,
		notifier:    notifier,
		publisher:   publisher,
		settleDelay: settleDelay,
	}
}

// TryPlayNext starts the next queued track if the session is idle.
//
// Concurrent calls for the same session are coalesced: only the caller holding
// the session gate proceeds, the others return nil immediately. Tracks that
// fail to resolve or play are skipped; their errors are joined into the result
// even when a later track starts.
func (s *PlaybackScheduler) TryPlayNext(ctx context.Context, guildID snowflake.ID) error {
	session := s.repo.Get(guildID)
	if session == nil {
		return ErrNotConnected
	}

	if !session.TryAcquireGate() {
		slog.Debug("start attempt already in progress", "guild", guildID)
		return nil
	}
	defer session.ReleaseGate()

	if s.connection.Status(guildID) != domain.StatusIdle {
		return nil
	}

	if s.settleDelay > 0 {
		timer := time.NewTimer(s.settleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if s.connection.Status(guildID) != domain.StatusIdle {
			return nil
		}
	}

	var skipped []error
	attempts := session.Queue.Len()
	for range attempts {
		if s.repo.Get(guildID) != session {
			break
		}

		track, ok := session.Queue.DequeueNext()
		if !ok {
			break
		}

		media, err := s.resolver.Resolve(ctx, track)
		if err != nil {
			err = errors.Mark(errors.Wrapf(err, "failed to resolve %q", track.Title), ports.ErrResolution)
			slog.Warn("skipping unresolvable track", "guild", guildID, "track", track.Title, "error", err)
			session.Queue.DropNowPlaying(track)
			s.notifySkipped(ctx, session, track)
			skipped = append(skipped, err)
			continue
		}

		// queued is kept without the download: the file is gone once Play fails.
		queued := track
		file := domain.NewMediaFile(media.LocalFilePath)
		if file != nil {
			track = track.WithLocalFile(file.Path())
		}

		err = s.connection.Play(ctx, guildID, media, s.completion(ctx, session, track, file))
		if err != nil {
			s.releaseFile(session, file)
			session.Queue.DropNowPlaying(queued)

			if errors.Is(err, ports.ErrNotConnected) || errors.Is(err, ports.ErrAlreadyPlaying) {
				// Connection went away or got busy; leave the track at the head.
				if qErr := session.Queue.Enqueue(queued, true); qErr != nil {
					slog.Warn("failed to requeue track", "guild", guildID, "error", qErr)
				}
				return errors.Join(append(skipped, errors.Wrap(err, "failed to start playback"))...)
			}

			slog.Warn("failed to play track", "guild", guildID, "track", track.Title, "error", err)
			skipped = append(skipped, errors.Wrapf(err, "failed to play %q", track.Title))
			continue
		}

		session.SetCurrentFile(file)
		if err := s.publisher.Publish(domain.TrackStartedEvent{
			GuildID:               guildID,
			Track:                 track,
			NotificationChannelID: session.NotificationChannelID(),
		}); err != nil {
			slog.Warn("failed to publish track started event", "guild", guildID, "error", err)
		}

		return errors.Join(skipped...)
	}

	return errors.Join(skipped...)
}

// Trigger runs TryPlayNext in the background. Errors are logged.
func (s *PlaybackScheduler) Trigger(ctx context.Context, guildID snowflake.ID) {
	ctx = context.WithoutCancel(ctx)

	s.chained.Add(1)
	go func() {
		defer s.chained.Done()
		if err := s.TryPlayNext(ctx, guildID); err != nil {
			slog.Warn("failed to start next track", "guild", guildID, "error", err)
		}
	}()
}

// Wait blocks until every TryPlayNext started by Trigger or by a completion
// callback has returned.
func (s *PlaybackScheduler) Wait() {
	s.chained.Wait()
}

// completion returns the callback handed to the connection for one started track.
func (s *PlaybackScheduler) completion(
	ctx context.Context,
	session *domain.VoiceSession,
	track domain.Track,
	file *domain.MediaFile,
) ports.TrackFinishedFunc {
	guildID := session.GuildID()

	return func(reason domain.TrackEndReason) {
		decision := domain.OnTrackFinished(s.connection.Status(guildID), reason)

		if decision.RecordHistory {
			session.Queue.RecordPlayed(track)
		} else {
			session.Queue.DropNowPlaying(track)
		}
		if decision.ReleaseMedia {
			s.releaseFile(session, file)
		}

		if err := s.publisher.Publish(domain.TrackFinishedEvent{
			GuildID: guildID,
			Track:   track,
			Reason:  reason,
		}); err != nil {
			slog.Warn("failed to publish track finished event", "guild", guildID, "error", err)
		}

		if !decision.PlayNext || s.repo.Get(guildID) != session {
			return
		}
		s.Trigger(ctx, guildID)
	}
}

func (s *PlaybackScheduler) releaseFile(session *domain.VoiceSession, file *domain.MediaFile) {
	releaseMediaFile(s.store, file)
	session.ClearCurrentFile(file)
}

func (s *PlaybackScheduler) notifySkipped(
	ctx context.Context,
	session *domain.VoiceSession,
	track domain.Track,
) {
	channelID := session.NotificationChannelID()
	if channelID == 0 {
		return
	}

	err := s.notifier.SendNotice(ctx, channelID, ports.Notice{
		Kind:    ports.NoticeError,
		Title:   "Skipped Track",
		Message: "Could not load **" + track.Title + "**, skipping.",
	})
	if err != nil {
		slog.Warn("failed to send skip notice", "guild", session.GuildID(), "error", err)
	}
}

// releaseMediaFile deletes a downloaded file the first time it is released.
func releaseMediaFile(store ports.MediaStore, file *domain.MediaFile) {
	if !file.MarkReleased() {
		return
	}
	if err := store.Release(file.Path()); err != nil {
		slog.Warn("failed to release media file", "path", file.Path(), "error", err)
	}
}
