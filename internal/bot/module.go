package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// InteractionHandler handles a slash command interaction. A returned error is
// reported to the user as a generic failure.
type InteractionHandler func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error

// AutocompleteHandler suggests values for the focused option of a command.
// Returning nil sends an empty choice list.
type AutocompleteHandler func(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandOptionChoice

// EventHandler is any function accepted by discordgo's AddHandler,
// e.g. func(s *discordgo.Session, e *discordgo.VoiceStateUpdate).
type EventHandler any

// ModuleDependencies is handed to every module's Init.
type ModuleDependencies struct {
	// Session is open, so State.User is populated.
	Session *discordgo.Session
}

// Module is a self-contained feature plugged into the bot.
type Module interface {
	Name() string

	// Commands returns the slash commands the module owns.
	Commands() []*discordgo.ApplicationCommand

	// CommandHandlers maps top-level command names to their handlers.
	CommandHandlers() map[string]InteractionHandler

	// EventHandlers are registered on the session after Init succeeds.
	EventHandlers() []EventHandler

	Init(deps ModuleDependencies) error

	// Shutdown releases the module's resources. It should return once ctx is
	// done even if background work has not finished.
	Shutdown(ctx context.Context) error
}

// ConfigurableModule is implemented by modules that read their own
// configuration. LoadConfig runs before the Discord connection is opened, so
// a missing setting fails startup early.
type ConfigurableModule interface {
	LoadConfig() error
}

// AutocompleteModule is implemented by modules whose commands have
// autocompleted options.
type AutocompleteModule interface {
	// AutocompleteHandlers maps top-level command names to their suggesters.
	AutocompleteHandlers() map[string]AutocompleteHandler
}
