package domain

import "time"

// Default inactivity limits.
const (
	DefaultIdleTimeout  = 3 * time.Minute
	DefaultPauseTimeout = 5 * time.Minute
)

// InactivityVerdict is the outcome of observing a connection once.
type InactivityVerdict int

const (
	InactivityKeep InactivityVerdict = iota
	InactivityIdleTimeout
	InactivityPauseTimeout
)

func (v InactivityVerdict) String() string {
	switch v {
	case InactivityIdleTimeout:
		return "idle_timeout"
	case InactivityPauseTimeout:
		return "pause_timeout"
	default:
		return "keep"
	}
}

// SessionClosedReason maps a timeout verdict to the reason recorded on teardown.
func (v InactivityVerdict) SessionClosedReason() SessionClosedReason {
	if v == InactivityPauseTimeout {
		return SessionClosedPaused
	}
	return SessionClosedIdle
}

// InactivityTimer tracks how long one connection has been paused or idle.
// It is not safe for concurrent use; the owner serializes access.
type InactivityTimer struct {
	PauseStartedAt *time.Time
	IdleStartedAt  *time.Time
	JustConnected  bool

	IdleTimeout  time.Duration
	PauseTimeout time.Duration
}

// NewInactivityTimer creates a timer in its post-connect grace state.
// Non-positive timeouts fall back to the defaults.
func NewInactivityTimer(idleTimeout, pauseTimeout time.Duration) *InactivityTimer {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if pauseTimeout <= 0 {
		pauseTimeout = DefaultPauseTimeout
	}
	return &InactivityTimer{
		JustConnected: true,
		IdleTimeout:   idleTimeout,
		PauseTimeout:  pauseTimeout,
	}
}

// MarkJustConnected makes the next observation a grace tick.
func (t *InactivityTimer) MarkJustConnected() {
	t.JustConnected = true
	t.PauseStartedAt = nil
	t.IdleStartedAt = nil
}

// Observe records the connection status seen at now and reports whether a timeout elapsed.
func (t *InactivityTimer) Observe(status PlaybackStatus, now time.Time) InactivityVerdict {
	if t.JustConnected {
		t.JustConnected = false
		return InactivityKeep
	}

	if status == StatusPaused {
		if t.PauseStartedAt == nil {
			t.PauseStartedAt = &now
		}
		if now.Sub(*t.PauseStartedAt) >= t.PauseTimeout {
			return InactivityPauseTimeout
		}
	} else {
		t.PauseStartedAt = nil
	}

	if status == StatusIdle {
		if t.IdleStartedAt == nil {
			t.IdleStartedAt = &now
		}
		if now.Sub(*t.IdleStartedAt) >= t.IdleTimeout {
			return InactivityIdleTimeout
		}
	} else {
		t.IdleStartedAt = nil
	}

	return InactivityKeep
}
