package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Handler is a slog.Handler that forwards every record to the wrapped
// handler and additionally journals records at or above min. It is scoped:
// only loggers built on this handler feed the journal, nothing global is
// touched.
type Handler struct {
	next    slog.Handler
	journal *Journal
	min     slog.Level
	attrs   []slog.Attr
	group   string
}

// NewHandler wraps next so that warnings and errors also land in the
// journal.
func NewHandler(next slog.Handler, j *Journal, min slog.Level) *Handler {
	return &Handler{next: next, journal: j, min: min}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.min {
		var parts []string
		for _, a := range h.attrs {
			parts = append(parts, formatAttr(h.group, a))
		}
		r.Attrs(func(a slog.Attr) bool {
			parts = append(parts, formatAttr(h.group, a))
			return true
		})

		// Journal write failures must not break logging.
		_ = h.journal.Append(ctx, Entry{
			Timestamp: r.Time,
			Level:     r.Level.String(),
			Action:    "log",
			Message:   r.Message,
			Details:   strings.Join(parts, " "),
		})
	}
	return h.next.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	if clone.group == "" {
		clone.group = name
	} else {
		clone.group = clone.group + "." + name
	}
	return &clone
}

func formatAttr(group string, a slog.Attr) string {
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	return fmt.Sprintf("%s=%v", key, a.Value.Any())
}
