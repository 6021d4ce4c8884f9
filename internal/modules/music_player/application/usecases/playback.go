package usecases

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// PauseInput contains the input for the Pause use case.
type PauseInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ResumeInput contains the input for the Resume use case.
type ResumeInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID               snowflake.ID
	Position              int          // Optional: 1-based queue position to skip to (0 skips the current track only)
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	SkippedTrack domain.Track
	Removed      int // queued tracks dropped before the target position
}

// StopInput contains the input for the Stop use case.
type StopInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// StopOutput contains the result of the Stop use case.
type StopOutput struct {
	Cleared int
}

// SetVolumeInput contains the input for the SetVolume use case.
type SetVolumeInput struct {
	GuildID snowflake.ID
	Volume  int
}

// NowPlayingInput contains the input for the NowPlaying use case.
type NowPlayingInput struct {
	GuildID snowflake.ID
}

// NowPlayingOutput contains the result of the NowPlaying use case.
type NowPlayingOutput struct {
	Track  domain.Track
	Status domain.PlaybackStatus
}

// PlaybackService handles playback control commands.
type PlaybackService struct {
	repo       domain.SessionRepository
	connection ports.PlaybackConnection
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(
	repo domain.SessionRepository,
	connection ports.PlaybackConnection,
) *PlaybackService {
	return &PlaybackService{
		repo:       repo,
		connection: connection,
	}
}

// Pause pauses the current playback.
func (p *PlaybackService) Pause(ctx context.Context, input PauseInput) error {
	session, err := p.session(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	switch p.connection.Status(session.GuildID()) {
	case domain.StatusPaused:
		return ErrAlreadyPaused
	case domain.StatusPlaying:
	default:
		return ErrNotPlaying
	}

	if err := p.connection.Pause(ctx, session.GuildID()); err != nil {
		if errors.Is(err, ports.ErrInvalidState) {
			return ErrNotPlaying
		}
		return errors.Wrap(err, "failed to pause playback")
	}
	return nil
}

// Resume resumes paused playback.
func (p *PlaybackService) Resume(ctx context.Context, input ResumeInput) error {
	session, err := p.session(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	if p.connection.Status(session.GuildID()) != domain.StatusPaused {
		return ErrNotPaused
	}

	if err := p.connection.Resume(ctx, session.GuildID()); err != nil {
		if errors.Is(err, ports.ErrInvalidState) {
			return ErrNotPaused
		}
		return errors.Wrap(err, "failed to resume playback")
	}
	return nil
}

// Skip stops the current track so that the next one starts. With a position,
// the queued tracks before that position are dropped first.
func (p *PlaybackService) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	session, err := p.session(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	if !isActive(p.connection.Status(session.GuildID())) {
		return nil, ErrNotPlaying
	}

	// Dropped before stopping so the completion callback chains to the new head.
	var removed []Track
	if input.Position > 0 {
		removed, err = session.Queue.RemoveBefore(input.Position - 1)
		if err != nil {
			return nil, err
		}
	}

	current, _ := session.Queue.NowPlaying()
	if err := p.connection.Stop(ctx, session.GuildID()); err != nil {
		if len(removed) == 0 {
			return nil, errors.Wrap(err, "failed to skip track")
		}
		if _, qErr := session.Queue.EnqueueAll(removed, true); qErr != nil {
			slog.Warn("failed to restore skipped tracks", "guild", session.GuildID(), "error", qErr)
		}
		return nil, errors.Wrap(err, "failed to skip track")
	}

	return &SkipOutput{SkippedTrack: current, Removed: len(removed)}, nil
}

// Stop clears the pending tracks and stops the current one. The history is kept.
func (p *PlaybackService) Stop(ctx context.Context, input StopInput) (*StopOutput, error) {
	session, err := p.session(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	cleared := session.Queue.ClearPending()

	if isActive(p.connection.Status(session.GuildID())) {
		if err := p.connection.Stop(ctx, session.GuildID()); err != nil {
			return nil, errors.Wrap(err, "failed to stop playback")
		}
	}

	return &StopOutput{Cleared: cleared}, nil
}

// SetVolume sets the playback volume in percent.
func (p *PlaybackService) SetVolume(ctx context.Context, input SetVolumeInput) error {
	if input.Volume < 0 || input.Volume > 100 {
		return ErrInvalidVolume
	}

	if p.repo.Get(input.GuildID) == nil {
		return ErrNotConnected
	}

	if err := p.connection.SetVolume(ctx, input.GuildID, input.Volume); err != nil {
		return errors.Wrap(err, "failed to set volume")
	}
	return nil
}

// NowPlaying returns the track currently playing or paused.
func (p *PlaybackService) NowPlaying(input NowPlayingInput) (*NowPlayingOutput, error) {
	session := p.repo.Get(input.GuildID)
	if session == nil {
		return nil, ErrNotConnected
	}

	status := p.connection.Status(input.GuildID)
	track, ok := session.Queue.NowPlaying()
	if !ok || !isActive(status) {
		return nil, ErrNotPlaying
	}

	return &NowPlayingOutput{Track: track, Status: status}, nil
}

func (p *PlaybackService) session(
	guildID, notificationChannelID snowflake.ID,
) (*domain.VoiceSession, error) {
	session := p.repo.Get(guildID)
	if session == nil {
		return nil, ErrNotConnected
	}
	if notificationChannelID != 0 {
		session.SetNotificationChannelID(notificationChannelID)
	}
	return session, nil
}

func isActive(status domain.PlaybackStatus) bool {
	return status == domain.StatusPlaying || status == domain.StatusPaused
}
