package usecases

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// SessionTeardown releases everything a voice session holds.
type SessionTeardown struct {
	repo       domain.SessionRepository
	connection ports.PlaybackConnection
	store      ports.MediaStore
	publisher  ports.EventPublisher
}

// NewSessionTeardown creates a new SessionTeardown.
func NewSessionTeardown(
	repo domain.SessionRepository,
	connection ports.PlaybackConnection,
	store ports.MediaStore,
	publisher ports.EventPublisher,
) *SessionTeardown {
	return &SessionTeardown{
		repo:       repo,
		connection: connection,
		store:      store,
		publisher:  publisher,
	}
}

// Teardown stops playback, deletes the current download, leaves the voice
// channel and clears the queue of the guild's session.
//
// It is idempotent: the session is taken out of the repository first, so a
// second or concurrent call finds nothing and returns nil. Every step is
// attempted even if an earlier one fails; failures are returned joined and
// marked with ErrTeardown.
func (t *SessionTeardown) Teardown(
	ctx context.Context,
	guildID snowflake.ID,
	reason domain.SessionClosedReason,
) error {
	session := t.repo.Take(guildID)
	if session == nil {
		return nil
	}

	var errs []error

	if status := t.connection.Status(guildID); status == domain.StatusPlaying ||
		status == domain.StatusPaused {
		if err := t.connection.Stop(ctx, guildID); err != nil &&
			!errors.Is(err, ports.ErrNotConnected) {
			errs = append(errs, errors.Wrap(err, "failed to stop playback"))
		}
	}

	if file := session.CurrentFile(); file != nil {
		releaseMediaFile(t.store, file)
		session.ClearCurrentFile(file)
	}

	if err := t.connection.Disconnect(ctx, guildID); err != nil &&
		!errors.Is(err, ports.ErrNotConnected) {
		errs = append(errs, errors.Wrap(err, "failed to disconnect"))
	}

	session.Queue.Clear()

	if err := t.publisher.Publish(domain.SessionClosedEvent{
		GuildID:               guildID,
		NotificationChannelID: session.NotificationChannelID(),
		Reason:                reason,
		NowPlayingMessage:     session.SwapNowPlayingMessage(nil),
	}); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to publish session closed event"))
	}

	if len(errs) == 0 {
		slog.Debug("session torn down", "guild", guildID, "reason", reason)
		return nil
	}

	err := errors.Mark(errors.Join(errs...), ErrTeardown)
	slog.Warn("session teardown incomplete", "guild", guildID, "reason", reason, "error", err)
	return err
}
