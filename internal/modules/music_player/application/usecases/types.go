package usecases

import "github.com/sglre6355/jukebot/internal/modules/music_player/domain"

// Domain names the Discord handlers need, so they never import domain.
type Track = domain.Track

const (
	StatusDisconnected = domain.StatusDisconnected
	StatusIdle         = domain.StatusIdle
	StatusPlaying      = domain.StatusPlaying
	StatusPaused       = domain.StatusPaused
)

var (
	ErrInvalidPosition  = domain.ErrInvalidPosition
	ErrCapacityExceeded = domain.ErrCapacityExceeded
)
