package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds the process-wide logger and installs it as the zap global so
// packages can log through zap.S(). Unknown levels fall back to info.
func Init(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if parsed, err := zapcore.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID adds request_id to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromContext returns a sugared logger carrying the context's request id.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return zap.S().With("request_id", reqID)
	}
	return zap.S()
}
