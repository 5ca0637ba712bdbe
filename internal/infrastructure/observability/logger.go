package observability

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func NewLogger(level string) *zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	logger := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
	return &logger
}

// NewConsoleLogger is NewLogger with human-readable output for interactive
// CLI runs.
func NewConsoleLogger(level string) *zerolog.Logger {
	base := NewLogger(level)
	logger := base.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return &logger
}
