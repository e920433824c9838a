package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Platform credentials. Both platforms are optional: the relay runs
	// without them, the ingest workers just refuse to start for a platform
	// whose credentials are missing.
	YouTubeAPIKey     string `env:"YOUTUBE_API_KEY"`
	TwitchBotUsername string `env:"TWITCH_BOT_USERNAME"`
	TwitchOAuthToken  string `env:"TWITCH_OAUTH_TOKEN"`

	LookupCacheTTL  time.Duration `env:"LOOKUP_CACHE_TTL" default:"5m"`
	LookupRateLimit float64       `env:"LOOKUP_RATE_LIMIT" default:"1"`

	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if cfg.LookupCacheTTL <= 0 {
		return fmt.Errorf("LOOKUP_CACHE_TTL must be positive, got %v", cfg.LookupCacheTTL)
	}

	if cfg.LookupRateLimit <= 0 {
		return fmt.Errorf("LOOKUP_RATE_LIMIT must be positive, got %v", cfg.LookupRateLimit)
	}

	// Twitch credentials only make sense as a pair.
	if (cfg.TwitchBotUsername == "") != (cfg.TwitchOAuthToken == "") {
		return fmt.Errorf("TWITCH_BOT_USERNAME and TWITCH_OAUTH_TOKEN must be set together")
	}

	return nil
}

// HasYouTubeCredentials reports whether YouTube ingest can be started.
func (c *Config) HasYouTubeCredentials() bool {
	return c.YouTubeAPIKey != ""
}

// HasTwitchCredentials reports whether authenticated Twitch ingest is
// configured. Twitch chat can also be read anonymously, so this only gates
// the credential presence flag, not the worker itself.
func (c *Config) HasTwitchCredentials() bool {
	return c.TwitchBotUsername != "" && c.TwitchOAuthToken != ""
}
