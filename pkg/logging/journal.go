package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// SendFunc delivers one journal entry. journal.Send has this signature.
type SendFunc func(message string, priority journal.Priority, vars map[string]string) error

// JournalHandler passes every record to next and also sends it to the
// journal, with attributes as upper-case journal fields.
type JournalHandler struct {
	next   slog.Handler
	level  slog.Leveler
	send   SendFunc
	attrs  []slog.Attr
	prefix string
}

// NewJournalHandler wraps next. Journal send errors are dropped so a broken
// journal socket never stops the run.
func NewJournalHandler(next slog.Handler, level slog.Leveler, send SendFunc) *JournalHandler {
	return &JournalHandler{next: next, level: level, send: send}
}

func (h *JournalHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() || h.next.Enabled(ctx, l)
}

func (h *JournalHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}
	if r.Level < h.level.Level() {
		return err
	}

	vars := make(map[string]string, len(h.attrs)+r.NumAttrs())
	var text strings.Builder
	text.WriteString(r.Message)
	add := func(key string, v slog.Value) {
		val := v.Resolve().String()
		vars[fieldName(key)] = val
		fmt.Fprintf(&text, " %s=%s", key, val)
	}
	// Stored attrs already carry the group prefix in force when they were added.
	for _, a := range h.attrs {
		add(a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(h.prefix+a.Key, a.Value)
		return true
	})

	_ = h.send(text.String(), priority(r.Level), vars)
	return err
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.next = h.next.WithAttrs(attrs)
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.next = h.next.WithGroup(name)
	c.prefix = h.prefix + name + "."
	return &c
}

func priority(l slog.Level) journal.Priority {
	switch {
	case l >= slog.LevelError:
		return journal.PriErr
	case l >= slog.LevelWarn:
		return journal.PriWarning
	case l >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// fieldName maps an attribute key to a valid journal field name.
func fieldName(key string) string {
	b := []byte(strings.ToUpper(key))
	for i, c := range b {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			b[i] = '_'
		}
	}
	name := strings.TrimLeft(string(b), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "F_" + name
	}
	return name
}
