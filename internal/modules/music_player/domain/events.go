package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// TrackEndReason represents why a track ended.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the track failed to load or errored mid-stream.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped by the user.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the player was torn down.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ChainsNext returns true if the next queued track should start after this end reason.
func (r TrackEndReason) ChainsNext() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed || r == TrackEndStopped
}

// Event is implemented by every event published on the module's event bus.
type Event interface {
	EventGuildID() snowflake.ID
}

// SessionConnectedEvent is published when the bot joins a voice channel for a new session.
type SessionConnectedEvent struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
}

// TrackStartedEvent is published when a track starts playing.
type TrackStartedEvent struct {
	GuildID               snowflake.ID
	Track                 Track
	NotificationChannelID snowflake.ID
}

// TrackFinishedEvent is published when a track's completion callback fires.
type TrackFinishedEvent struct {
	GuildID snowflake.ID
	Track   Track
	Reason  TrackEndReason
}

// SessionClosedReason explains why a session was torn down.
type SessionClosedReason string

const (
	SessionClosedLeave        SessionClosedReason = "leave"
	SessionClosedIdle         SessionClosedReason = "idle_timeout"
	SessionClosedPaused       SessionClosedReason = "pause_timeout"
	SessionClosedDisconnected SessionClosedReason = "disconnected"
)

// SessionClosedEvent is published once a session has been torn down.
type SessionClosedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	Reason                SessionClosedReason
	NowPlayingMessage     *NowPlayingMessage
}

func (e SessionConnectedEvent) EventGuildID() snowflake.ID { return e.GuildID }
func (e TrackStartedEvent) EventGuildID() snowflake.ID     { return e.GuildID }
func (e TrackFinishedEvent) EventGuildID() snowflake.ID    { return e.GuildID }
func (e SessionClosedEvent) EventGuildID() snowflake.ID    { return e.GuildID }
