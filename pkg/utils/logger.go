package utils

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process logger and installs it as the global one.
// Debug builds force debug level.
func NewLogger(level string, pretty bool) (zerolog.Logger, error) {
	return newLogger(os.Stderr, level, pretty)
}

func newLogger(out io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	if buildLevel != zerolog.NoLevel {
		lvl = buildLevel
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	return logger, nil
}

// StdLogger adapts logger for APIs that want a *log.Logger, such as
// http.Server.ErrorLog.
func StdLogger(logger zerolog.Logger) *stdlog.Logger {
	return stdlog.New(logger.With().Str("source", "net/http").Logger(), "", 0)
}
