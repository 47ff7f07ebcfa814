package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// configureLogging installs a process-wide slog text logger writing to w.
//
// Supported levels: debug, info, warn, error.
func configureLogging(w io.Writer, level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parsed})
	slog.SetDefault(slog.New(h))
	return nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return slog.LevelInfo, nil
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}
