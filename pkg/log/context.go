package log

import (
	"context"
	"log/slog"
)

type contextKey string

const contextKeyAttrs contextKey = "logAttrs"

// WithAttrs returns a copy of ctx carrying the given attributes. Records
// logged with this context through a ContextHandler will include them.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	existing := ContextAttrs(ctx)

	merged := make([]slog.Attr, 0, len(existing)+len(attrs))
	merged = append(merged, existing...)
	merged = append(merged, attrs...)

	return context.WithValue(ctx, contextKeyAttrs, merged)
}

func ContextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	attrs, ok := ctx.Value(contextKeyAttrs).([]slog.Attr)
	if !ok {
		return nil
	}

	return attrs
}

type ContextHandler struct {
	slog.Handler
}

// Handle implements slog.Handler.
func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(ContextAttrs(ctx)...)
	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{h.Handler.WithGroup(name)}
}

var _ slog.Handler = ContextHandler{}
