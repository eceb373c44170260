package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug     bool   `env:"DEBUG" envDefault:"false"`
	SentryDSN string `env:"SENTRY_DSN" envDefault:""`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8003"`
		Origin string `env:"CORS_ORIGINS" envDefault:"*"`
	}

	Database struct {
		URL             string        `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/telegive?sslmode=disable"`
		MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	// Base URLs of the collaborating Telegive services.
	Services struct {
		AuthURL        string `env:"TELEGIVE_AUTH_URL" envDefault:"http://localhost:8001"`
		ChannelURL     string `env:"TELEGIVE_CHANNEL_URL" envDefault:"http://localhost:8002"`
		ParticipantURL string `env:"TELEGIVE_PARTICIPANT_URL" envDefault:"http://localhost:8004"`
		BotURL         string `env:"TELEGIVE_BOT_URL" envDefault:"http://localhost:8005"`
		MediaURL       string `env:"TELEGIVE_MEDIA_URL" envDefault:"http://localhost:8006"`

		HealthTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"5s"`
	}

	Giveaway struct {
		MaxWinnerCount      int           `env:"MAX_WINNER_COUNT" envDefault:"100"`
		ResultTokenLength   int           `env:"RESULT_TOKEN_LENGTH" envDefault:"32"`
		TokenMaxAttempts    int           `env:"RESULT_TOKEN_MAX_ATTEMPTS" envDefault:"10"`
		CleanupDelayMinutes int           `env:"CLEANUP_DELAY_MINUTES" envDefault:"5"`
		StatsCacheTTL       time.Duration `env:"STATS_CACHE_TTL" envDefault:"30s"`
	}
}

// Load reads .env (when present) and parses the environment into Config.
func Load() (*Config, error) {
	// В production переменные приходят из окружения, .env нужен только локально
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}
