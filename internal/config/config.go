package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	RawLogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	RedisURL    string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"24h"`

	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	CatalogPath string `env:"CATALOG_PATH" envDefault:"data/events.json"`
	ArchivePath string `env:"ARCHIVE_PATH"`

	// AdvanceInterval switches the CLI from line-driven to timed rounds.
	AdvanceInterval time.Duration `env:"ADVANCE_INTERVAL"`
	// Seed fixes the random source. Zero means crypto-seeded.
	Seed     uint64 `env:"SEED"`
	MaxDraws int    `env:"MAX_DRAWS" envDefault:"1000"`
	Width    int    `env:"WRAP_WIDTH" envDefault:"80"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.RawLogLevel)
	if cfg.MaxDraws < 1 {
		return nil, fmt.Errorf("MAX_DRAWS must be positive, got %d", cfg.MaxDraws)
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
