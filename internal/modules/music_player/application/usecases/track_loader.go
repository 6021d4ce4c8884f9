package usecases

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// DefaultPlaylistLimit bounds how many entries of a playlist are enqueued.
const DefaultPlaylistLimit = 100

// DefaultSearchLimit is the number of suggestions returned by SearchTracks.
const DefaultSearchLimit = 10

// LoadTracksInput contains the input for the LoadTracks use case.
type LoadTracksInput struct {
	Query         string
	RequesterID   snowflake.ID
	RequesterName string
}

// LoadTracksOutput contains the result of the LoadTracks use case.
type LoadTracksOutput struct {
	Tracks       []domain.Track
	PlaylistName string // empty unless a playlist was loaded
	Truncated    int    // playlist entries dropped by the playlist limit
}

// SearchTracksInput contains the input for the SearchTracks use case.
type SearchTracksInput struct {
	Query string
	Limit int
}

// SearchTracksOutput contains the result of the SearchTracks use case.
type SearchTracksOutput struct {
	Tracks []*ports.TrackInfo
}

// TrackLoaderService turns user queries into tracks ready to be queued.
type TrackLoaderService struct {
	trackResolver ports.TrackResolver
	playlistLimit int
}

// NewTrackLoaderService creates a new TrackLoaderService.
// A non-positive playlistLimit selects DefaultPlaylistLimit.
func NewTrackLoaderService(
	trackResolver ports.TrackResolver,
	playlistLimit int,
) *TrackLoaderService {
	if playlistLimit <= 0 {
		playlistLimit = DefaultPlaylistLimit
	}
	return &TrackLoaderService{
		trackResolver: trackResolver,
		playlistLimit: playlistLimit,
	}
}

// LoadTracks resolves a URL or search term. A search yields its first result,
// a playlist yields up to the playlist limit of its entries.
func (s *TrackLoaderService) LoadTracks(
	ctx context.Context,
	input LoadTracksInput,
) (*LoadTracksOutput, error) {
	query := domain.ParseSearchQuery(input.Query)
	if query.Empty() {
		return nil, ErrNoResults
	}

	result, err := s.trackResolver.LoadTracks(ctx, query.Text)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tracks")
	}
	if result == nil || result.Type == ports.LoadTypeEmpty || len(result.Tracks) == 0 {
		return nil, ErrNoResults
	}

	infos := result.Tracks
	output := &LoadTracksOutput{}

	switch result.Type {
	case ports.LoadTypePlaylist:
		output.PlaylistName = result.PlaylistName
		if len(infos) > s.playlistLimit {
			output.Truncated = len(infos) - s.playlistLimit
			infos = infos[:s.playlistLimit]
		}
	default:
		infos = infos[:1]
	}

	output.Tracks = make([]domain.Track, 0, len(infos))
	for _, info := range infos {
		output.Tracks = append(output.Tracks, trackFromInfo(info, input.RequesterID, input.RequesterName))
	}

	return output, nil
}

// SearchTracks returns search suggestions for a partial query.
// URLs and empty queries yield no suggestions.
func (s *TrackLoaderService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	query := domain.ParseSearchQuery(input.Query)
	if query.Empty() || query.IsLink() || s.trackResolver == nil {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	tracks, err := s.trackResolver.SearchTracks(ctx, query.Text, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search tracks")
	}
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}

	return &SearchTracksOutput{Tracks: tracks}, nil
}

func trackFromInfo(info *ports.TrackInfo, requesterID snowflake.ID, requesterName string) domain.Track {
	source := domain.ParseTrackSource(info.SourceName)
	if info.SourceName == "" {
		source = domain.SourceFromURL(info.URI)
	}

	track := domain.NewTrack(
		info.Title,
		info.Artist,
		info.URI,
		info.Duration,
		source,
		requesterID,
		requesterName,
	)
	track.ArtworkURL = info.ArtworkURL
	return track
}
