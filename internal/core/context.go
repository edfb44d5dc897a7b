package core

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	ctxKeyLogger contextKey = "logger"
	ctxKeyOrigin contextKey = "origin"
)

// ContextWithLogger attaches a logger to ctx. Engine code logs through it so
// entries carry the caller's request id and dataset fields.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// logFromContext returns the logger attached to ctx, or the default logger.
func logFromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKeyLogger).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ContextWithOrigin records who triggered an export (client IP or CLI user).
// The value is written into the metadata sheet as the "exportedBy" extension.
func ContextWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, ctxKeyOrigin, origin)
}

// OriginFromContext returns the origin stored by ContextWithOrigin.
func OriginFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyOrigin).(string); ok {
		return v
	}
	return ""
}
