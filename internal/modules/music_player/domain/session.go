package domain

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// NowPlayingMessage locates a posted "Now Playing" message. The channel is kept
// because notices may have moved to another channel since it was sent.
type NowPlayingMessage struct {
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

// NewNowPlayingMessage creates a NowPlayingMessage.
func NewNowPlayingMessage(channelID, messageID snowflake.ID) *NowPlayingMessage {
	return &NowPlayingMessage{ChannelID: channelID, MessageID: messageID}
}

// VoiceSession is the state of the bot in one guild's voice channel.
// Each session owns its own TrackQueue; nothing is shared across guilds.
type VoiceSession struct {
	guildID snowflake.ID

	// Queue is exclusive to this session.
	Queue *TrackQueue

	// gate admits a single "start next track" attempt at a time.
	gate sync.Mutex

	mu                    sync.RWMutex
	voiceChannelID        snowflake.ID
	notificationChannelID snowflake.ID       // origin channel for notices
	nowPlayingMessage     *NowPlayingMessage // "Now Playing" message info (for deletion)
	currentFile           *MediaFile
}

// NewVoiceSession creates a session for the given guild and channels.
func NewVoiceSession(
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
	queue *TrackQueue,
) *VoiceSession {
	if queue == nil {
		queue = NewTrackQueue(DefaultQueueCapacity, DefaultHistoryCapacity)
	}
	return &VoiceSession{
		guildID:               guildID,
		voiceChannelID:        voiceChannelID,
		notificationChannelID: notificationChannelID,
		Queue:                 queue,
	}
}

// GuildID returns the guild ID.
func (s *VoiceSession) GuildID() snowflake.ID {
	// No lock: guildID must not be modified after initialization
	return s.guildID
}

// TryAcquireGate takes the playback gate without blocking.
// It returns false when another start attempt already holds it.
func (s *VoiceSession) TryAcquireGate() bool {
	return s.gate.TryLock()
}

// ReleaseGate releases a gate obtained from TryAcquireGate.
func (s *VoiceSession) ReleaseGate() {
	s.gate.Unlock()
}

// VoiceChannelID returns the voice channel the bot is connected to.
func (s *VoiceSession) VoiceChannelID() snowflake.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voiceChannelID
}

// SetVoiceChannelID updates the voice channel ID.
func (s *VoiceSession) SetVoiceChannelID(channelID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceChannelID = channelID
}

// NotificationChannelID returns the text channel used for notices.
func (s *VoiceSession) NotificationChannelID() snowflake.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notificationChannelID
}

// SetNotificationChannelID updates the text channel used for notices.
func (s *VoiceSession) SetNotificationChannelID(channelID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationChannelID = channelID
}

// NowPlayingMessage returns the "Now Playing" message, if one was sent.
func (s *VoiceSession) NowPlayingMessage() *NowPlayingMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowPlayingMessage
}

// SwapNowPlayingMessage stores msg and returns the previous message, if any.
func (s *VoiceSession) SwapNowPlayingMessage(msg *NowPlayingMessage) *NowPlayingMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.nowPlayingMessage
	s.nowPlayingMessage = msg
	return prev
}

// CurrentFile returns the downloaded file of the track being played, if any.
func (s *VoiceSession) CurrentFile() *MediaFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentFile
}

// SetCurrentFile records the downloaded file of the track being played.
func (s *VoiceSession) SetCurrentFile(file *MediaFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentFile = file
}

// ClearCurrentFile forgets file if it is still the current one.
func (s *VoiceSession) ClearCurrentFile(file *MediaFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentFile == file {
		s.currentFile = nil
	}
}

// SessionRepository stores at most one VoiceSession per guild.
type SessionRepository interface {
	// Get returns the guild's session, or nil.
	Get(guildID snowflake.ID) *VoiceSession

	Save(session *VoiceSession)

	// Take removes and returns the guild's session. When callers race, exactly
	// one of them gets it and the rest get nil, which makes teardown run once.
	Take(guildID snowflake.ID) *VoiceSession

	// List returns the sessions at the time of the call.
	List() []*VoiceSession
}
