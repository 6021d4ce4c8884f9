package domain

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
)

// Default limits for a single session.
const (
	DefaultQueueCapacity   = 10000
	DefaultHistoryCapacity = 10000
)

var (
	// ErrCapacityExceeded is returned when the pending queue is full.
	ErrCapacityExceeded = errors.New("queue capacity exceeded")

	// ErrInvalidPosition is returned when a queue position is out of range.
	ErrInvalidPosition = errors.New("invalid queue position")
)

// TrackQueue holds the pending tracks, the play history and the track currently playing
// for one voice session.
//
// Each method is atomic. Moving the head into the now-playing slot must additionally
// happen under the session's playback gate so two schedulers never start tracks at once.
type TrackQueue struct {
	mu sync.Mutex

	pending    []Track
	history    []Track // most recent first
	nowPlaying *Track

	capacity        int
	historyCapacity int
}

// NewTrackQueue creates an empty queue. Non-positive limits fall back to the defaults.
func NewTrackQueue(capacity, historyCapacity int) *TrackQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if historyCapacity <= 0 {
		historyCapacity = DefaultHistoryCapacity
	}
	return &TrackQueue{
		capacity:        capacity,
		historyCapacity: historyCapacity,
	}
}

// Enqueue appends a track, or inserts it at the head when priority is set.
func (q *TrackQueue) Enqueue(track Track, priority bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) >= q.capacity {
		return ErrCapacityExceeded
	}

	if priority {
		q.pending = append([]Track{track}, q.pending...)
	} else {
		q.pending = append(q.pending, track)
	}
	return nil
}

// EnqueueAll adds a batch of tracks keeping their relative order.
// A priority batch is placed at the head as one block. Tracks that do not fit are
// dropped and ErrCapacityExceeded is returned along with the number actually added.
func (q *TrackQueue) EnqueueAll(tracks []Track, priority bool) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	free := q.capacity - len(q.pending)
	if free <= 0 {
		return 0, ErrCapacityExceeded
	}

	var err error
	batch := tracks
	if len(batch) > free {
		batch = batch[:free]
		err = ErrCapacityExceeded
	}

	if priority {
		merged := make([]Track, 0, len(batch)+len(q.pending))
		merged = append(merged, batch...)
		q.pending = append(merged, q.pending...)
	} else {
		q.pending = append(q.pending, batch...)
	}

	return len(batch), err
}

// DequeueNext removes the head of the queue and makes it the now-playing track.
// When the queue is empty the now-playing slot is cleared and false is returned.
func (q *TrackQueue) DequeueNext() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.nowPlaying = nil
		return Track{}, false
	}

	next := q.pending[0]
	q.pending[0] = Track{}
	q.pending = q.pending[1:]
	q.nowPlaying = &next
	return next, true
}

// RecordPlayed pushes a finished track to the front of the history, evicting the
// oldest entry when the history is full. The now-playing slot is cleared if it held
// this track.
func (q *TrackQueue) RecordPlayed(track Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.history = append([]Track{track}, q.history...)
	if len(q.history) > q.historyCapacity {
		q.history = q.history[:q.historyCapacity]
	}

	if q.nowPlaying != nil && q.nowPlaying.ID == track.ID {
		q.nowPlaying = nil
	}
}

// DropNowPlaying clears the now-playing slot if it holds this track, without
// recording it. Used for tracks that never started.
func (q *TrackQueue) DropNowPlaying(track Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.nowPlaying != nil && q.nowPlaying.ID == track.ID {
		q.nowPlaying = nil
	}
}

// ReplayHistory re-enqueues every history entry oldest first and clears the history.
// It returns the number of tracks added back to the queue.
func (q *TrackQueue) ReplayHistory() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	added := 0
	for i := len(q.history) - 1; i >= 0; i-- {
		if len(q.pending) >= q.capacity {
			break
		}
		q.pending = append(q.pending, q.history[i])
		added++
	}
	q.history = nil
	return added
}

// PeekAll returns a snapshot of the pending tracks.
func (q *TrackQueue) PeekAll() []Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Track, len(q.pending))
	copy(out, q.pending)
	return out
}

// Recent returns up to limit history entries, most recent first.
// A non-positive limit returns the whole history.
func (q *TrackQueue) Recent(limit int) []Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if limit <= 0 || limit > len(q.history) {
		limit = len(q.history)
	}
	out := make([]Track, limit)
	copy(out, q.history[:limit])
	return out
}

// NowPlaying returns the track moved out of the queue most recently, if any.
func (q *TrackQueue) NowPlaying() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.nowPlaying == nil {
		return Track{}, false
	}
	return *q.nowPlaying, true
}

// Remove deletes the pending track at the given zero-based index.
func (q *TrackQueue) Remove(index int) (Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.pending) {
		return Track{}, ErrInvalidPosition
	}

	removed := q.pending[index]
	q.pending = append(q.pending[:index], q.pending[index+1:]...)
	return removed, nil
}

// RemoveBefore drops every pending track before the given zero-based index,
// so that the track at index becomes the head. It returns the dropped tracks
// in queue order.
func (q *TrackQueue) RemoveBefore(index int) ([]Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.pending) {
		return nil, ErrInvalidPosition
	}

	removed := slices.Clone(q.pending[:index])
	q.pending = q.pending[index:]
	return removed, nil
}

// ClearPending drops the pending tracks and keeps the history.
func (q *TrackQueue) ClearPending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	q.pending = nil
	return n
}

// ClearHistory drops the history and keeps the pending tracks.
func (q *TrackQueue) ClearHistory() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.history)
	q.history = nil
	return n
}

// Clear drops the pending tracks, the history and the now-playing slot.
func (q *TrackQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = nil
	q.history = nil
	q.nowPlaying = nil
}

// Len returns the number of pending tracks.
func (q *TrackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// IsEmpty reports whether no tracks are pending.
func (q *TrackQueue) IsEmpty() bool {
	return q.Len() == 0
}

// HistoryLen returns the number of history entries.
func (q *TrackQueue) HistoryLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.history)
}
