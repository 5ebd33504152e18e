// Package logger builds the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/qonto-ledger-sync/internal/config"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a JSON slog logger tagged with the application name.
// Source locations are included only at debug level.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	log := slog.New(handler).With(
		"app", cfg.Application.Name,
		"env", cfg.Application.Env,
	)
	log.Info("logger initialized", "level", level.String())
	return log
}
