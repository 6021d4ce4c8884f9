package ports

import "github.com/cockroachdb/errors"

// Errors reported by PlaybackConnection and MediaResolver implementations.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrConnectionFailed is returned when joining a voice channel fails or times out.
	ErrConnectionFailed = errors.New("failed to connect to the voice channel")

	// ErrAlreadyPlaying is returned when Play is called while a track is playing or paused.
	ErrAlreadyPlaying = errors.New("a track is already playing")

	// ErrInvalidState is returned when pause or resume is called outside its valid state.
	ErrInvalidState = errors.New("invalid playback state")

	// ErrResolution is returned when playable media cannot be resolved for a track.
	ErrResolution = errors.New("failed to resolve media")
)
