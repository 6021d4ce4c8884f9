package music_player

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/sglre6355/jukebot/internal/bot"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/watchers"
	"github.com/sglre6355/jukebot/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/jukebot/internal/modules/music_player/presentation/discord"
	"golang.org/x/sync/errgroup"
)

// connectTimeout bounds the initial connection to the Lavalink node.
const connectTimeout = 15 * time.Second

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.AutocompleteModule = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers

	connection *infrastructure.LavalinkConnection
	eventBus   *infrastructure.ChannelEventBus
	scheduler  *usecases.PlaybackScheduler

	// Background watchers
	cancel   context.CancelFunc
	watchers *errgroup.Group
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":       m.commandHandlers.HandleJoin,
		"leave":      m.commandHandlers.HandleLeave,
		"play":       m.commandHandlers.HandlePlay,
		"playnext":   m.commandHandlers.HandlePlayNext,
		"pause":      m.commandHandlers.HandlePause,
		"resume":     m.commandHandlers.HandleResume,
		"skip":       m.commandHandlers.HandleSkip,
		"stop":       m.commandHandlers.HandleStop,
		"queue":      m.commandHandlers.HandleQueue,
		"clear":      m.commandHandlers.HandleClear,
		"recent":     m.commandHandlers.HandleRecent,
		"replay":     m.commandHandlers.HandleReplay,
		"nowplaying": m.commandHandlers.HandleNowPlaying,
		"volume":     m.commandHandlers.HandleVolume,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		m.eventHandlers.HandleVoiceServerUpdate,
		m.eventHandlers.HandleVoiceStateUpdate,
	}
}

// AutocompleteHandlers returns the option suggesters for this module.
func (m *MusicPlayerModule) AutocompleteHandlers() map[string]bot.AutocompleteHandler {
	return map[string]bot.AutocompleteHandler{
		"play":     m.autocomplete.Choices,
		"playnext": m.autocomplete.Choices,
		"skip":     m.autocomplete.Choices,
		"queue":    m.autocomplete.Choices,
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return errors.New("music_player module requires a Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}
	cfg := m.config

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	// Event bus first: every publisher below needs it
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	connectCtx, cancelConnect := context.WithTimeout(ctx, connectTimeout)
	defer cancelConnect()
	connection, err := infrastructure.NewLavalinkConnection(connectCtx, deps.Session, infrastructure.LavalinkConfig{
		Address:  cfg.LavalinkAddress,
		Password: cfg.LavalinkPassword,
		Secure:   cfg.LavalinkSecure,
	})
	if err != nil {
		m.abort()
		return err
	}
	m.connection = connection

	// Create infrastructure
	mediaCache, err := infrastructure.NewMediaCache(cfg.MediaCacheDir)
	if err != nil {
		m.abort()
		return err
	}
	ytdlpResolver := infrastructure.NewYtdlpResolver(infrastructure.YtdlpConfig{
		CacheDir: mediaCache.Dir(),
		Download: cfg.MediaDownload,
	})
	var trackResolver ports.TrackResolver = ytdlpResolver
	if cfg.SpotifyEnabled() {
		trackResolver = infrastructure.NewSpotifyResolver(ctx, infrastructure.SpotifyConfig{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
		}, ytdlpResolver, cfg.PlaylistLimit)
		slog.Info("enabled Spotify link resolution")
	}
	repo := infrastructure.NewMemoryRepository()
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session.State)
	notifier := infrastructure.NewNotifier(deps.Session, cfg.NotifyRate, cfg.NotifyBurst)

	// Create services
	m.scheduler = usecases.NewPlaybackScheduler(
		repo,
		connection,
		ytdlpResolver,
		mediaCache,
		notifier,
		m.eventBus,
		cfg.SettleDelay,
	)
	teardown := usecases.NewSessionTeardown(repo, connection, mediaCache, m.eventBus)
	voiceChannel := usecases.NewVoiceChannelService(
		repo,
		connection,
		voiceState,
		m.eventBus,
		teardown,
		usecases.QueueLimits{
			Capacity:        cfg.QueueCapacity,
			HistoryCapacity: cfg.HistoryCapacity,
		},
	)
	playback := usecases.NewPlaybackService(repo, connection)
	queue := usecases.NewQueueService(repo, connection, m.scheduler)
	trackLoader := usecases.NewTrackLoaderService(trackResolver, cfg.PlaylistLimit)
	autocomplete := usecases.NewAutocompleteService(repo, trackLoader)
	notificationChannel := usecases.NewNotificationChannelService(repo)

	// Register application event handlers
	notificationHandler := application.NewNotificationEventHandler(repo, m.eventBus, notifier)
	if err := notificationHandler.Start(); err != nil {
		m.abort()
		return err
	}

	// Start background watchers
	var group *errgroup.Group
	group, ctx = errgroup.WithContext(ctx)
	m.watchers = group
	queueWatcher := watchers.NewQueueWatcher(repo, connection, m.scheduler, cfg.QueueCheckInterval)
	inactivity := watchers.NewInactivitySupervisor(repo, connection, teardown, notifier, watchers.InactivityConfig{
		Interval:     cfg.InactivityCheckInterval,
		IdleTimeout:  cfg.IdleTimeout,
		PauseTimeout: cfg.PauseTimeout,
	})
	if err := inactivity.Subscribe(m.eventBus); err != nil {
		m.abort()
		return err
	}
	janitor := watchers.NewCacheJanitor(repo, mediaCache, cfg.CacheSweepInterval)
	group.Go(func() error { return queueWatcher.Run(ctx) })
	group.Go(func() error { return inactivity.Run(ctx) })
	group.Go(func() error { return janitor.Run(ctx) })

	// Create presentation handlers
	m.commandHandlers = discord.NewCommandHandlers(
		voiceChannel,
		playback,
		queue,
		trackLoader,
		notificationChannel,
	)
	m.autocomplete = discord.NewAutocompleteHandler(autocomplete)
	m.eventHandlers = discord.NewEventHandlers(connection.BotID(), connection, voiceChannel)

	slog.Info("music_player module initialized",
		"download", cfg.MediaDownload,
		"cache_dir", mediaCache.Dir(),
		"spotify", cfg.SpotifyEnabled(),
	)

	return nil
}

// abort releases what Init created before failing.
func (m *MusicPlayerModule) abort() {
	m.cancel()
	m.eventBus.Close()
	if m.connection != nil {
		m.connection.Close()
		m.connection = nil
	}
}

// Shutdown stops the watchers, waits for in-flight playback attempts and
// closes the Lavalink connection. If ctx ends first the connection is closed
// without waiting.
func (m *MusicPlayerModule) Shutdown(ctx context.Context) error {
	// Cancel context first to stop the watchers
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan error, 1)
	go func() {
		var err error
		if m.watchers != nil {
			if werr := m.watchers.Wait(); werr != nil {
				err = errors.Wrap(werr, "watcher failed")
			}
		}
		// Chained playback attempts publish events, so the bus closes after them
		if m.scheduler != nil {
			m.scheduler.Wait()
		}
		if m.eventBus != nil {
			m.eventBus.Close()
		}
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "gave up waiting for background work")
	}

	if m.connection != nil {
		m.connection.Close()
	}

	return err
}
