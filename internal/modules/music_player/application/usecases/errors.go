package usecases

import (
	"github.com/cockroachdb/errors"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
)

// Domain errors for the music player module.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = ports.ErrNotConnected

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when trying to pause while already paused.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrQueueEmpty is returned when the queue is empty.
	ErrQueueEmpty = errors.New("the queue is empty")

	// ErrHistoryEmpty is returned when nothing has been played yet.
	ErrHistoryEmpty = errors.New("nothing has been played yet")

	// ErrInvalidVolume is returned when the volume is outside 0-100.
	ErrInvalidVolume = errors.New("volume must be between 0 and 100")

	// ErrTeardown marks best-effort cleanup failures during session teardown.
	ErrTeardown = errors.New("session teardown failed")
)
