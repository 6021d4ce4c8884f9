package domain

import (
	"github.com/cockroachdb/errors"
)

// ErrInvalidTransition is returned when a command is not valid in the current status.
var ErrInvalidTransition = errors.New("invalid playback transition")

// PlaybackStatus is the state of a voice connection's audio sink.
type PlaybackStatus int

const (
	StatusDisconnected PlaybackStatus = iota
	StatusIdle
	StatusPlaying
	StatusPaused
)

func (s PlaybackStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// IsConnected reports whether the connection is in any connected state.
func (s PlaybackStatus) IsConnected() bool {
	return s != StatusDisconnected
}

// PlaybackCommand is an input to the playback state machine.
type PlaybackCommand int

const (
	CommandConnect PlaybackCommand = iota
	CommandPlay
	CommandPause
	CommandResume
	// CommandFinish covers every way a track can end: natural end, stop, or error.
	CommandFinish
	CommandDisconnect
)

func (c PlaybackCommand) String() string {
	switch c {
	case CommandConnect:
		return "connect"
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandResume:
		return "resume"
	case CommandFinish:
		return "finish"
	case CommandDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Connecting while already connected moves the bot to another channel and keeps
// the playback state.
var playbackTransitions = map[PlaybackStatus]map[PlaybackCommand]PlaybackStatus{
	StatusDisconnected: {
		CommandConnect:    StatusIdle,
		CommandDisconnect: StatusDisconnected,
	},
	StatusIdle: {
		CommandConnect:    StatusIdle,
		CommandPlay:       StatusPlaying,
		CommandFinish:     StatusIdle,
		CommandDisconnect: StatusDisconnected,
	},
	StatusPlaying: {
		CommandConnect:    StatusPlaying,
		CommandPause:      StatusPaused,
		CommandFinish:     StatusIdle,
		CommandDisconnect: StatusDisconnected,
	},
	StatusPaused: {
		CommandConnect:    StatusPaused,
		CommandResume:     StatusPlaying,
		CommandFinish:     StatusIdle,
		CommandDisconnect: StatusDisconnected,
	},
}

// Transition returns the status reached by applying cmd, or ErrInvalidTransition.
func (s PlaybackStatus) Transition(cmd PlaybackCommand) (PlaybackStatus, error) {
	next, ok := playbackTransitions[s][cmd]
	if !ok {
		return s, errors.Wrapf(ErrInvalidTransition, "cannot %s while %s", cmd, s)
	}
	return next, nil
}

// TrackFinishedDecision tells the completion handler what to do once a track ends.
type TrackFinishedDecision struct {
	RecordHistory bool
	ReleaseMedia  bool
	PlayNext      bool
}

// OnTrackFinished decides the follow-up of a finished track from the connection
// status observed when the completion fires. A disconnected connection never
// chains into the next track.
func OnTrackFinished(status PlaybackStatus, reason TrackEndReason) TrackFinishedDecision {
	return TrackFinishedDecision{
		RecordHistory: reason != TrackEndReplaced,
		ReleaseMedia:  true,
		PlayNext:      status != StatusDisconnected && reason.ChainsNext(),
	}
}
