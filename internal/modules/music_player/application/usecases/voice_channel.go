package usecases

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
	Moved          bool
}

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
}

// BotVoiceStateChangeInput contains the input for handling bot voice state changes.
type BotVoiceStateChangeInput struct {
	GuildID      snowflake.ID
	NewChannelID *snowflake.ID // nil means disconnected
}

// QueueLimits bounds the queue of each new session.
type QueueLimits struct {
	Capacity        int
	HistoryCapacity int
}

// VoiceChannelService handles voice channel operations.
type VoiceChannelService struct {
	repo       domain.SessionRepository
	connection ports.PlaybackConnection
	voiceState ports.VoiceStateProvider
	publisher  ports.EventPublisher
	teardown   *SessionTeardown
	limits     QueueLimits
}

// NewVoiceChannelService creates a new VoiceChannelService.
func NewVoiceChannelService(
	repo domain.SessionRepository,
	connection ports.PlaybackConnection,
	voiceState ports.VoiceStateProvider,
	publisher ports.EventPublisher,
	teardown *SessionTeardown,
	limits QueueLimits,
) *VoiceChannelService {
	return &VoiceChannelService{
		repo:       repo,
		connection: connection,
		voiceState: voiceState,
		publisher:  publisher,
		teardown:   teardown,
		limits:     limits,
	}
}

// Join joins the bot to a voice channel, creating the guild's session.
// Joining while already connected moves the session and keeps its queue.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, err := v.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if userChannel == 0 {
			return nil, ErrUserNotInVoice
		}
		voiceChannelID = userChannel
	}

	existing := v.repo.Get(input.GuildID)
	if existing != nil && existing.VoiceChannelID() == voiceChannelID {
		if input.NotificationChannelID != 0 {
			existing.SetNotificationChannelID(input.NotificationChannelID)
		}
		return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
	}

	if err := v.connection.Connect(ctx, input.GuildID, voiceChannelID); err != nil {
		return nil, err
	}

	if existing != nil {
		existing.SetVoiceChannelID(voiceChannelID)
		if input.NotificationChannelID != 0 {
			existing.SetNotificationChannelID(input.NotificationChannelID)
		}
		return &JoinOutput{VoiceChannelID: voiceChannelID, Moved: true}, nil
	}

	session := domain.NewVoiceSession(
		input.GuildID,
		voiceChannelID,
		input.NotificationChannelID,
		domain.NewTrackQueue(v.limits.Capacity, v.limits.HistoryCapacity),
	)
	v.repo.Save(session)

	if err := v.publisher.Publish(domain.SessionConnectedEvent{
		GuildID:        input.GuildID,
		VoiceChannelID: voiceChannelID,
	}); err != nil {
		slog.Warn("failed to publish session connected event", "guild", input.GuildID, "error", err)
	}

	return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
}

// Leave tears the guild's session down and leaves the voice channel.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) error {
	if v.repo.Get(input.GuildID) == nil {
		return ErrNotConnected
	}
	return v.teardown.Teardown(ctx, input.GuildID, domain.SessionClosedLeave)
}

// HandleBotVoiceStateChange handles external voice state changes (bot moved or disconnected).
// A disconnect tears the session down; a move only updates the channel.
func (v *VoiceChannelService) HandleBotVoiceStateChange(
	ctx context.Context,
	input BotVoiceStateChangeInput,
) error {
	session := v.repo.Get(input.GuildID)
	if session == nil {
		return nil
	}

	if input.NewChannelID == nil {
		return v.teardown.Teardown(ctx, input.GuildID, domain.SessionClosedDisconnected)
	}

	if *input.NewChannelID != session.VoiceChannelID() {
		session.SetVoiceChannelID(*input.NewChannelID)
	}
	return nil
}
