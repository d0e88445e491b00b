// Package config loads the bot configuration from the environment, reading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	DiscordToken          string   `env:"DISCORD_TOKEN"`
	CommandPrefix         string   `env:"COMMAND_PREFIX" envDefault:"!"`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"false"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`

	YouTubeAPIKey   string `env:"YOUTUBE_API_KEY"`
	MaxPlaylistSize int    `env:"MAX_PLAYLIST_SIZE" envDefault:"200"`

	DefaultVolume float64 `env:"DEFAULT_VOLUME" envDefault:"100"`
	MaxVolume     float64 `env:"MAX_VOLUME" envDefault:"200"`

	AudioBitrate        int `env:"AUDIO_BITRATE" envDefault:"96"`
	AudioBufferedFrames int `env:"AUDIO_BUFFERED_FRAMES" envDefault:"100"`

	CommandCooldown time.Duration `env:"COMMAND_COOLDOWN" envDefault:"1s"`
	CommandBurst    int           `env:"COMMAND_BURST" envDefault:"3"`

	StoragePath string `env:"STORAGE_PATH" envDefault:"data/datastore.json"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile   string `env:"LOG_FILE"`

	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load reads .env files (missing files are fine) and parses the environment.
func Load(files ...string) (*Config, error) {
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load(files...)
	return Parse()
}

// Parse builds a Config from the current environment and validates it.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DiscordToken == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is not set"))
	}
	if c.CommandPrefix == "" {
		errs = append(errs, errors.New("COMMAND_PREFIX must not be empty"))
	}
	if c.MaxVolume <= 0 {
		errs = append(errs, errors.New("MAX_VOLUME must be positive"))
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > c.MaxVolume {
		errs = append(errs, fmt.Errorf("DEFAULT_VOLUME must be within [0, %g]", c.MaxVolume))
	}
	if c.MaxPlaylistSize <= 0 {
		errs = append(errs, errors.New("MAX_PLAYLIST_SIZE must be positive"))
	}
	if c.AudioBitrate < 8 || c.AudioBitrate > 512 {
		errs = append(errs, errors.New("AUDIO_BITRATE must be within [8, 512] kbps"))
	}
	if c.CommandBurst <= 0 {
		errs = append(errs, errors.New("COMMAND_BURST must be positive"))
	}
	return errors.Join(errs...)
}

// RedactedToken is safe to log.
func (c *Config) RedactedToken() string {
	if len(c.DiscordToken) < 8 {
		return "***"
	}
	return c.DiscordToken[:4] + "***"
}
