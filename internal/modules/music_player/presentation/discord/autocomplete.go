package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/usecases"
)

// Discord rejects autocomplete responses with more choices or longer values.
const (
	maxChoices        = 25
	maxChoiceLength   = 100
	minQueryLength    = 2
	autocompleteLimit = 10
)

// autocompleteTimeout keeps suggestions within Discord's three second deadline.
const autocompleteTimeout = 2500 * time.Millisecond

type autocompleteUsecase interface {
	GetQueueTracks(input usecases.GetQueueTracksInput) *usecases.GetQueueTracksOutput
	SearchTracks(ctx context.Context, input usecases.SearchTracksInput) (*usecases.SearchTracksOutput, error)
}

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	autocomplete autocompleteUsecase
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(autocomplete *usecases.AutocompleteService) *AutocompleteHandler {
	return &AutocompleteHandler{
		autocomplete: autocomplete,
	}
}

// Choices suggests values for the focused option of play, playnext, skip
// and queue remove.
func (h *AutocompleteHandler) Choices(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandOptionChoice {
	data := i.ApplicationCommandData()

	switch data.Name {
	case "play", "playnext":
		if opt := focusedOption(data.Options); opt != nil {
			return h.queryChoices(opt.StringValue())
		}
	case "skip":
		return h.positionChoices(i.GuildID)
	case "queue":
		if len(data.Options) > 0 && data.Options[0].Name == "remove" {
			return h.positionChoices(i.GuildID)
		}
	}
	return nil
}

// queryChoices suggests search results for a partial query.
func (h *AutocompleteHandler) queryChoices(query string) []*discordgo.ApplicationCommandOptionChoice {
	if len([]rune(query)) < minQueryLength {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	output, err := h.autocomplete.SearchTracks(ctx, usecases.SearchTracksInput{
		Query: query,
		Limit: autocompleteLimit,
	})
	if err != nil {
		slog.Debug("failed to search tracks for autocomplete", "query", query, "error", err)
		return nil
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(output.Tracks))
	for _, track := range output.Tracks {
		// The chosen value is played as is, so it must fit untruncated
		value := track.URI
		if value == "" || len(value) > maxChoiceLength {
			value = truncate(track.Title, maxChoiceLength)
		}
		name := track.Title
		if track.Artist != "" {
			name = fmt.Sprintf("%s - %s", track.Title, track.Artist)
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(name, maxChoiceLength),
			Value: value,
		})
	}
	return choices
}

// positionChoices suggests queue positions with their track titles.
func (h *AutocompleteHandler) positionChoices(rawGuildID string) []*discordgo.ApplicationCommandOptionChoice {
	guildID, err := snowflake.Parse(rawGuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guild", rawGuildID)
		return nil
	}

	tracks := h.autocomplete.GetQueueTracks(usecases.GetQueueTracksInput{GuildID: guildID}).Tracks
	if len(tracks) > maxChoices {
		tracks = tracks[:maxChoices]
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(tracks))
	for idx, track := range tracks {
		// Use 1-indexed positions to match queue list display
		position := idx + 1
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("%d. %s", position, track.Title), maxChoiceLength),
			Value: position,
		})
	}
	return choices
}

func focusedOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Focused {
			return opt
		}
	}
	return nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
