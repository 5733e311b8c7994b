package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/tribute-engine/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return setup(os.Stdout, cfg)
}

// SetupTo is Setup writing somewhere other than stdout. Interactive
// frontends use it to keep logs off the terminal they draw on.
func SetupTo(w io.Writer, cfg *config.Config) *slog.Logger {
	return setup(w, cfg)
}

func setup(w io.Writer, cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithSimulation scopes a logger to one simulation.
func WithSimulation(logger *slog.Logger, id string) *slog.Logger {
	return logger.With("simulation_id", id)
}
