package usecases

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// NotificationChannelService points a session's notices at the channel of the latest command.
type NotificationChannelService struct {
	repo domain.SessionRepository
}

// NewNotificationChannelService creates a new NotificationChannelService.
func NewNotificationChannelService(repo domain.SessionRepository) *NotificationChannelService {
	return &NotificationChannelService{repo: repo}
}

// SetNotificationChannelInput contains the input for the Set use case.
type SetNotificationChannelInput struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// Set updates the notification channel of the guild's session.
// A zero channel ID is ignored.
func (n *NotificationChannelService) Set(input SetNotificationChannelInput) error {
	session := n.repo.Get(input.GuildID)
	if session == nil {
		return ErrNotConnected
	}

	if input.ChannelID != 0 {
		session.SetNotificationChannelID(input.ChannelID)
	}
	return nil
}
