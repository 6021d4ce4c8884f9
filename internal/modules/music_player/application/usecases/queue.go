package usecases

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

const DefaultPageSize = 10

// DefaultRecentLimit is the number of history entries shown by Recent.
const DefaultRecentLimit = 10

// PlaybackTrigger starts the next queued track in the background if the session is idle.
type PlaybackTrigger interface {
	Trigger(ctx context.Context, guildID snowflake.ID)
}

// QueueAddInput contains the input for the QueueAdd use case.
type QueueAddInput struct {
	GuildID               snowflake.ID
	Tracks                []domain.Track
	Priority              bool         // insert at the head of the queue instead of the tail
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueAddOutput contains the result of the QueueAdd use case.
type QueueAddOutput struct {
	Added    int
	Dropped  int // tracks rejected because the queue is full
	Position int // 1-indexed queue position of the first added track
}

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID               snowflake.ID
	Page                  int          // 1-indexed page number
	PageSize              int          // Items per page (optional, defaults to 10)
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	CurrentTrack *domain.Track // nil when nothing is playing
	Tracks       []domain.Track
	TotalTracks  int
	CurrentPage  int
	TotalPages   int
	PageOffset   int // queue index of Tracks[0]
}

// QueueRemoveInput contains the input for the QueueRemove use case.
type QueueRemoveInput struct {
	GuildID               snowflake.ID
	Position              int          // 1-indexed position in the queue
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueRemoveOutput contains the result of the QueueRemove use case.
type QueueRemoveOutput struct {
	RemovedTrack domain.Track
}

// QueueClearInput contains the input for the QueueClear use case.
type QueueClearInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueClearOutput contains the result of the QueueClear use case.
type QueueClearOutput struct {
	ClearedCount int
}

// QueueRecentInput contains the input for the QueueRecent use case.
type QueueRecentInput struct {
	GuildID snowflake.ID
	Limit   int
}

// QueueRecentOutput contains the result of the QueueRecent use case.
type QueueRecentOutput struct {
	Tracks []domain.Track // most recent first
}

// QueueReplayInput contains the input for the QueueReplay use case.
type QueueReplayInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueReplayOutput contains the result of the QueueReplay use case.
type QueueReplayOutput struct {
	Added int
}

// QueueService handles queue operations.
type QueueService struct {
	repo       domain.SessionRepository
	connection ports.PlaybackConnection
	trigger    PlaybackTrigger
}

// NewQueueService creates a new QueueService.
func NewQueueService(
	repo domain.SessionRepository,
	connection ports.PlaybackConnection,
	trigger PlaybackTrigger,
) *QueueService {
	return &QueueService{
		repo:       repo,
		connection: connection,
		trigger:    trigger,
	}
}

// Add enqueues tracks and starts playback if the session is idle.
// When the queue fills up the remaining tracks are dropped and reported.
func (q *QueueService) Add(ctx context.Context, input QueueAddInput) (*QueueAddOutput, error) {
	session, err := q.session(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}
	if len(input.Tracks) == 0 {
		return nil, ErrNoResults
	}

	added, err := session.Queue.EnqueueAll(input.Tracks, input.Priority)
	if err != nil && !errors.Is(err, domain.ErrCapacityExceeded) {
		return nil, err
	}
	if added == 0 {
		return nil, domain.ErrCapacityExceeded
	}

	position := 1
	if !input.Priority {
		position = session.Queue.Len() - added + 1
	}

	if q.connection.Status(input.GuildID) == domain.StatusIdle {
		q.trigger.Trigger(ctx, input.GuildID)
	}

	return &QueueAddOutput{
		Added:    added,
		Dropped:  len(input.Tracks) - added,
		Position: position,
	}, nil
}

// List returns the now-playing track and a page of the pending tracks.
func (q *QueueService) List(input QueueListInput) (*QueueListOutput, error) {
	session, err := q.session(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}

	var currentTrack *domain.Track
	if isActive(q.connection.Status(input.GuildID)) {
		if track, ok := session.Queue.NowPlaying(); ok {
			currentTrack = &track
		}
	}

	queuedTracks := session.Queue.PeekAll()

	totalTracks := len(queuedTracks)
	totalPages := (totalTracks + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	// Clamp page to valid range
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, totalTracks)

	var pageTracks []domain.Track
	if start < totalTracks {
		pageTracks = queuedTracks[start:end]
	}

	return &QueueListOutput{
		CurrentTrack: currentTrack,
		Tracks:       pageTracks,
		TotalTracks:  totalTracks,
		CurrentPage:  page,
		TotalPages:   totalPages,
		PageOffset:   start,
	}, nil
}

// Remove removes the queued track at the given 1-indexed position.
func (q *QueueService) Remove(input QueueRemoveInput) (*QueueRemoveOutput, error) {
	session, err := q.session(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	if session.Queue.IsEmpty() {
		return nil, ErrQueueEmpty
	}

	track, err := session.Queue.Remove(input.Position - 1)
	if err != nil {
		return nil, err
	}

	return &QueueRemoveOutput{RemovedTrack: track}, nil
}

// Clear drops every pending track. The current track keeps playing.
func (q *QueueService) Clear(input QueueClearInput) (*QueueClearOutput, error) {
	session, err := q.session(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	count := session.Queue.ClearPending()
	if count == 0 {
		return nil, ErrQueueEmpty
	}

	return &QueueClearOutput{ClearedCount: count}, nil
}

// Recent returns the most recently played tracks.
func (q *QueueService) Recent(input QueueRecentInput) (*QueueRecentOutput, error) {
	session := q.repo.Get(input.GuildID)
	if session == nil {
		return nil, ErrNotConnected
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	tracks := session.Queue.Recent(limit)
	if len(tracks) == 0 {
		return nil, ErrHistoryEmpty
	}

	return &QueueRecentOutput{Tracks: tracks}, nil
}

// Replay moves the history back into the queue, oldest first, and starts
// playback if the session is idle.
func (q *QueueService) Replay(ctx context.Context, input QueueReplayInput) (*QueueReplayOutput, error) {
	session, err := q.session(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	if session.Queue.HistoryLen() == 0 {
		return nil, ErrHistoryEmpty
	}

	added := session.Queue.ReplayHistory()
	if added > 0 && q.connection.Status(input.GuildID) == domain.StatusIdle {
		q.trigger.Trigger(ctx, input.GuildID)
	}

	return &QueueReplayOutput{Added: added}, nil
}

func (q *QueueService) session(
	guildID, notificationChannelID snowflake.ID,
) (*domain.VoiceSession, error) {
	session := q.repo.Get(guildID)
	if session == nil {
		return nil, ErrNotConnected
	}
	if notificationChannelID != 0 {
		session.SetNotificationChannelID(notificationChannelID)
	}
	return session, nil
}
