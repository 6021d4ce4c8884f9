package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// GetQueueTracksInput contains the input for the GetQueueTracks use case.
type GetQueueTracksInput struct {
	GuildID snowflake.ID
}

// GetQueueTracksOutput contains the output for the GetQueueTracks use case.
type GetQueueTracksOutput struct {
	Tracks []domain.Track
}

// AutocompleteService backs slash command autocompletion.
type AutocompleteService struct {
	repo   domain.SessionRepository
	loader *TrackLoaderService
}

// NewAutocompleteService creates a new AutocompleteService.
func NewAutocompleteService(
	repo domain.SessionRepository,
	loader *TrackLoaderService,
) *AutocompleteService {
	return &AutocompleteService{
		repo:   repo,
		loader: loader,
	}
}

// GetQueueTracks returns the pending tracks for queue position suggestions.
func (s *AutocompleteService) GetQueueTracks(input GetQueueTracksInput) *GetQueueTracksOutput {
	session := s.repo.Get(input.GuildID)
	if session == nil {
		return &GetQueueTracksOutput{Tracks: nil}
	}

	return &GetQueueTracksOutput{
		Tracks: session.Queue.PeekAll(),
	}
}

// SearchTracks returns search suggestions for a partial query.
func (s *AutocompleteService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	if s.loader == nil {
		return &SearchTracksOutput{Tracks: nil}, nil
	}
	return s.loader.SearchTracks(ctx, input)
}
