package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// TrackID is a unique identifier for a track in a queue.
type TrackID string

// NewTrackID returns a fresh random TrackID.
func NewTrackID() TrackID {
	return TrackID(uuid.NewString())
}

// Track represents a playable audio track.
// Tracks are values: once created they are never mutated, copies are derived instead.
type Track struct {
	ID            TrackID
	Title         string
	Artist        string
	OriginalURL   string
	Duration      time.Duration // zero when unknown
	Source        TrackSource
	ArtworkURL    string
	LocalFilePath string // set only when the media was downloaded
	RequesterID   snowflake.ID
	RequesterName string
	EnqueuedAt    time.Time
}

// NewTrack creates a new Track with a generated ID.
func NewTrack(
	title string,
	artist string,
	originalURL string,
	duration time.Duration,
	source TrackSource,
	requesterID snowflake.ID,
	requesterName string,
) Track {
	return Track{
		ID:            NewTrackID(),
		Title:         title,
		Artist:        artist,
		OriginalURL:   originalURL,
		Duration:      duration,
		Source:        source,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		EnqueuedAt:    time.Now().UTC(),
	}
}

// WithLocalFile returns a copy of the track pointing at a downloaded file.
func (t Track) WithLocalFile(path string) Track {
	t.LocalFilePath = path
	return t
}

// IsDownloaded reports whether the track owns a file on disk.
func (t Track) IsDownloaded() bool {
	return t.LocalFilePath != ""
}

// DurationSeconds returns the duration in whole seconds and false when unknown.
func (t Track) DurationSeconds() (int, bool) {
	if t.Duration <= 0 {
		return 0, false
	}
	return int(t.Duration.Seconds()), true
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
func (t Track) FormattedDuration() string {
	totalSeconds, ok := t.DurationSeconds()
	if !ok {
		return "LIVE"
	}

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
