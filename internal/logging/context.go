package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxLoggerKey struct{}

// WithContext returns a new context carrying the logger.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, or a no-op logger if none
// was attached.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}
