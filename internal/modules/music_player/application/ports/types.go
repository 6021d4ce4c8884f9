package ports

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// LoadResult represents the result of loading tracks.
type LoadResult struct {
	Type         LoadType
	Tracks       []*TrackInfo
	PlaylistName string
}

// LoadType represents the type of load result.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
)

// TrackInfo contains information about a loaded track.
type TrackInfo struct {
	Identifier string // Extractor ID, e.g. the YouTube video ID
	Title      string
	Artist     string
	Duration   time.Duration
	URI        string
	ArtworkURL string
	SourceName string // "youtube" or "spotify"
}

// NowPlayingInfo contains information for the "Now Playing" notification.
type NowPlayingInfo struct {
	Title         string
	Artist        string
	Duration      string
	URI           string
	ArtworkURL    string
	SourceName    string
	RequesterID   snowflake.ID
	RequesterName string
	EnqueuedAt    time.Time
}
