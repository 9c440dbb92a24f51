package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the log encoding and level
type Config struct {
	Encoding string `yaml:"encoding,omitempty"` // "console" (default) or "json"
	Level    string `yaml:"level,omitempty"`    // "debug", "info" (default), "warn", "error"
}

// New creates a logger for app. A nil cfg means console output at info level.
func New(app string, cfg *Config) (*slog.Logger, error) {
	return NewWithWriter(app, cfg, nil)
}

// NewWithWriter is New with an explicit destination. A nil w selects stderr
// for console output and stdout for json.
func NewWithWriter(app string, cfg *Config, w io.Writer) (*slog.Logger, error) {
	c := Config{Encoding: "console", Level: "info"}
	if cfg != nil {
		if cfg.Encoding != "" {
			c.Encoding = cfg.Encoding
		}
		if cfg.Level != "" {
			c.Level = cfg.Level
		}
	}

	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(c.Encoding) {
	case "console":
		if w == nil {
			w = os.Stderr
		}
		handler = slog.NewTextHandler(w, opts)
	case "json":
		if w == nil {
			w = os.Stdout
		}
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid logger config: encoding %q is not supported", c.Encoding)
	}

	return slog.New(handler).With("app", app), nil
}

// ParseLevel parses a level name into a slog.Level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid logger config: level %q is not supported", level)
	}
}
