package logging

import (
	"context"
	"log/slog"
)

// Slog wraps a Logger in a *slog.Logger. The MCP SDK only accepts slog, so
// this is how its internal logging ends up in our output.
func Slog(l Logger) *slog.Logger {
	return slog.New(&slogHandler{logger: l})
}

type slogHandler struct {
	logger Logger
	attrs  []slog.Attr
	group  string
}

func fromSlog(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Enabled(fromSlog(level))
}

func (h *slogHandler) Handle(_ context.Context, rec slog.Record) error {
	fields := make(Fields, len(h.attrs)+rec.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		fields[h.key(a.Key)] = a.Value.Any()
		return true
	})
	h.logger.Log(fromSlog(rec.Level), rec.Message, fields)
	return nil
}

func (h *slogHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &next
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.group = h.key(name)
	return &next
}
