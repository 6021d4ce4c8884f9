package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// NoticeKind selects how a notice is rendered.
type NoticeKind string

const (
	NoticeInfo       NoticeKind = "info"
	NoticeError      NoticeKind = "error"
	NoticeInactivity NoticeKind = "inactivity"
)

// Notice is a short message posted to a text channel.
type Notice struct {
	Kind    NoticeKind
	Title   string
	Message string
}

// ChatNotifier sends notifications to Discord channels.
// Callers treat failures as fire-and-forget: they are logged, never propagated
// as playback errors.
type ChatNotifier interface {
	// SendNotice posts a notice to the channel.
	SendNotice(ctx context.Context, channelID snowflake.ID, notice Notice) error

	// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
	SendNowPlaying(
		ctx context.Context,
		channelID snowflake.ID,
		info *NowPlayingInfo,
	) (messageID snowflake.ID, err error)

	// DeleteMessage deletes a message from the channel.
	DeleteMessage(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID) error
}
