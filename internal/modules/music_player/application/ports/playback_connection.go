package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// TrackFinishedFunc is invoked exactly once when a track started by Play ends.
type TrackFinishedFunc func(reason domain.TrackEndReason)

// VoiceStateProvider reads the gateway's voice state cache.
type VoiceStateProvider interface {
	// GetUserVoiceChannel returns the channel the user is connected to in the
	// guild, or 0 when they are not in voice.
	GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}

// PlaybackConnection is the live audio sink of a guild's voice session.
type PlaybackConnection interface {
	// Connect joins the voice channel. Fails with ErrConnectionFailed.
	Connect(ctx context.Context, guildID, channelID snowflake.ID) error

	// Play starts the media while Idle. Fails with ErrAlreadyPlaying when a track is
	// playing or paused and with ErrNotConnected when disconnected.
	// onFinished is called exactly once when the track ends for any reason.
	Play(
		ctx context.Context,
		guildID snowflake.ID,
		media *ResolvedMedia,
		onFinished TrackFinishedFunc,
	) error

	// Pause pauses a playing track. Fails with ErrInvalidState otherwise.
	Pause(ctx context.Context, guildID snowflake.ID) error

	// Resume resumes a paused track. Fails with ErrInvalidState otherwise.
	Resume(ctx context.Context, guildID snowflake.ID) error

	// Stop ends the current track; its callback fires with TrackEndStopped.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// Disconnect leaves the voice channel from any state. The connection reports
	// StatusDisconnected before the pending callback, if any, fires.
	Disconnect(ctx context.Context, guildID snowflake.ID) error

	// SetVolume sets the playback volume in percent (0-100).
	SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error

	// Status returns the current playback status.
	Status(guildID snowflake.ID) domain.PlaybackStatus
}
