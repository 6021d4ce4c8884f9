package music_player

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	// MediaCacheDir must be readable by the Lavalink node when downloads are enabled.
	MediaCacheDir string `env:"MEDIA_CACHE_DIR" envDefault:"./cache" validate:"required"`
	MediaDownload bool   `env:"MEDIA_DOWNLOAD" envDefault:"true"`

	QueueCapacity   int           `env:"QUEUE_CAPACITY" envDefault:"10000" validate:"min=1"`
	HistoryCapacity int           `env:"HISTORY_CAPACITY" envDefault:"10000" validate:"min=0"`
	PlaylistLimit   int           `env:"PLAYLIST_LIMIT" envDefault:"100" validate:"min=1"`
	SettleDelay     time.Duration `env:"SETTLE_DELAY" envDefault:"500ms" validate:"min=0"`

	QueueCheckInterval      time.Duration `env:"QUEUE_CHECK_INTERVAL" envDefault:"30s" validate:"min=1s"`
	InactivityCheckInterval time.Duration `env:"INACTIVITY_CHECK_INTERVAL" envDefault:"30s" validate:"min=1s"`
	IdleTimeout             time.Duration `env:"IDLE_TIMEOUT" envDefault:"3m" validate:"min=1s"`
	PauseTimeout            time.Duration `env:"PAUSE_TIMEOUT" envDefault:"5m" validate:"min=1s"`
	CacheSweepInterval      time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"2m" validate:"min=1s"`

	// Spotify links are only resolved when both credentials are set.
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID" validate:"required_with=SpotifyClientSecret"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET" validate:"required_with=SpotifyClientID"`

	NotifyRate  float64 `env:"NOTIFY_RATE" envDefault:"1" validate:"gt=0"`
	NotifyBurst int     `env:"NOTIFY_BURST" envDefault:"5" validate:"min=1"`
}

// LoadConfig parses and validates the module configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse music player config")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid music player config")
	}
	return cfg, nil
}

// SpotifyEnabled reports whether Spotify credentials are configured.
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}
