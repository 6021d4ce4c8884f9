package application

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// NotificationEventHandler keeps the "Now Playing" message of each session in sync
// with playback: one message per started track, deleted once the track or the
// session ends.
type NotificationEventHandler struct {
	sessions   domain.SessionRepository
	subscriber ports.EventSubscriber
	notifier   ports.ChatNotifier
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	sessions domain.SessionRepository,
	subscriber ports.EventSubscriber,
	notifier ports.ChatNotifier,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		sessions:   sessions,
		subscriber: subscriber,
		notifier:   notifier,
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() error {
	err := h.subscriber.Subscribe(
		reflect.TypeFor[domain.TrackStartedEvent](),
		func(ctx context.Context, e domain.Event) {
			h.handleTrackStarted(ctx, e.(domain.TrackStartedEvent))
		},
	)
	if err != nil {
		return err
	}

	err = h.subscriber.Subscribe(
		reflect.TypeFor[domain.TrackFinishedEvent](),
		func(ctx context.Context, e domain.Event) {
			h.handleTrackFinished(ctx, e.(domain.TrackFinishedEvent))
		},
	)
	if err != nil {
		return err
	}

	err = h.subscriber.Subscribe(
		reflect.TypeFor[domain.SessionClosedEvent](),
		func(ctx context.Context, e domain.Event) {
			h.handleSessionClosed(ctx, e.(domain.SessionClosedEvent))
		},
	)
	if err != nil {
		return err
	}

	slog.Debug("notification event handlers properly registered")

	return nil
}

func (h *NotificationEventHandler) handleTrackStarted(
	ctx context.Context,
	event domain.TrackStartedEvent,
) {
	session := h.sessions.Get(event.GuildID)
	if session == nil {
		slog.Debug(
			"skipping now playing notification, session not found",
			"guild", event.GuildID,
		)
		return
	}

	channelID := event.NotificationChannelID
	if channelID == 0 {
		return
	}

	slog.Debug("sending now playing notification", "guild", event.GuildID, "track", event.Track.Title)

	messageID, err := h.notifier.SendNowPlaying(ctx, channelID, nowPlayingInfo(event.Track))
	if err != nil {
		slog.Error(
			"failed to send now playing notification",
			"guild", event.GuildID,
			"error", err,
		)
		return
	}

	// Store the message info for later deletion
	previous := session.SwapNowPlayingMessage(domain.NewNowPlayingMessage(channelID, messageID))
	h.deleteMessage(ctx, previous)
}

func (h *NotificationEventHandler) handleTrackFinished(
	ctx context.Context,
	event domain.TrackFinishedEvent,
) {
	session := h.sessions.Get(event.GuildID)
	if session == nil {
		// Session closed; SessionClosedEvent carries the message.
		return
	}
	h.deleteMessage(ctx, session.SwapNowPlayingMessage(nil))
}

func (h *NotificationEventHandler) handleSessionClosed(
	ctx context.Context,
	event domain.SessionClosedEvent,
) {
	h.deleteMessage(ctx, event.NowPlayingMessage)
}

func (h *NotificationEventHandler) deleteMessage(ctx context.Context, msg *domain.NowPlayingMessage) {
	if msg == nil {
		return
	}
	if err := h.notifier.DeleteMessage(ctx, msg.ChannelID, msg.MessageID); err != nil {
		slog.Warn(
			"failed to delete now playing message",
			"now_playing", msg,
			"error", err,
		)
	}
}

func nowPlayingInfo(track domain.Track) *ports.NowPlayingInfo {
	return &ports.NowPlayingInfo{
		Title:         track.Title,
		Artist:        track.Artist,
		Duration:      track.FormattedDuration(),
		URI:           track.OriginalURL,
		ArtworkURL:    track.ArtworkURL,
		SourceName:    string(track.Source),
		RequesterID:   track.RequesterID,
		RequesterName: track.RequesterName,
		EnqueuedAt:    track.EnqueuedAt,
	}
}
