package ports

import (
	"context"
	"time"

	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// TrackResolver turns what a user typed into track metadata. Nothing is
// downloaded here.
type TrackResolver interface {
	// LoadTracks resolves a track URL, a playlist URL or a search term.
	LoadTracks(ctx context.Context, query string) (*LoadResult, error)

	// SearchTracks returns at most limit search results for autocomplete.
	SearchTracks(ctx context.Context, query string, limit int) ([]*TrackInfo, error)
}

// ResolvedMedia is a track made playable.
// Exactly one of StreamURL and LocalFilePath is set.
type ResolvedMedia struct {
	Title         string
	Artist        string
	Duration      time.Duration
	StreamURL     string
	LocalFilePath string
}

// Identifier returns what the audio node should load.
func (m *ResolvedMedia) Identifier() string {
	if m.LocalFilePath != "" {
		return m.LocalFilePath
	}
	return m.StreamURL
}

// MediaResolver turns a queued track into playable media.
// Implementations may block (downloads); errors wrap ErrResolution.
type MediaResolver interface {
	Resolve(ctx context.Context, track domain.Track) (*ResolvedMedia, error)
}

// MediaStore owns downloaded media files.
type MediaStore interface {
	// Release deletes a downloaded file. Missing files are not an error.
	Release(path string) error

	// Sweep deletes every leftover download and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}
