// Package logging builds the slog logger used by the daemon.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Config is the logging configuration.
type Config struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level" env:"LEVEL"`
	// Format is either text or json.
	Format string `toml:"format" env:"FORMAT"`
	// Journal also sends records to the systemd journal when it is
	// available.
	Journal bool `toml:"journal" env:"JOURNAL"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Format:  "text",
		Journal: true,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", "text", "json":
		return nil
	default:
		return errors.Errorf("unknown log format %q", c.Format)
	}
}

// New creates a logger writing to w, and to the journal if enabled and
// available. An unparsable level falls back to info.
func New(cfg Config, w io.Writer) *slog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(NewHandler(cfg, w, level))
}

// NewHandler creates the handler chain for the configuration. With the
// journal enabled and available, records go to both w and the journal,
// unless w is a stderr that systemd already forwards to the journal, in
// which case they go to the journal only.
func NewHandler(cfg Config, w io.Writer, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if cfg.Format == "json" {
		console = slog.NewJSONHandler(w, opts)
	} else {
		console = slog.NewTextHandler(w, opts)
	}

	if !cfg.Journal || !IsJournalAvailable() {
		return console
	}

	journal := NewJournalHandler(level)
	if w == os.Stderr && stderrIsJournal() {
		return journal
	}

	return tee{console: console, journal: journal}
}

// ParseLevel converts a level name to a slog.Level. The empty string is
// info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("unknown log level %q", level)
	}
}
