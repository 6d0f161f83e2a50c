// Package logging builds the process logger: slog on stderr, tagged with the
// run id, optionally mirrored to the systemd journal.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/google/uuid"
)

// Options configures New.
type Options struct {
	Level   string    // debug, info, warn, error
	Format  string    // text or json
	Writer  io.Writer // defaults to os.Stderr
	RunID   string    // generated when empty
	Journal bool      // mirror records to journald when it is reachable
}

// New returns a logger with a run_id attribute on every record.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}
	if opts.Journal && journal.Enabled() {
		handler = NewJournalHandler(handler, hopts.Level, journal.Send)
	}

	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}
	return slog.New(handler).With("run_id", runID)
}

// NewRunID returns a fresh identifier for one invocation.
func NewRunID() string {
	return uuid.NewString()
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
