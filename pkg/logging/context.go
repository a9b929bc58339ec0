package logging

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CorrelationIDKey is the context key for the request-scoped correlation id
type CorrelationIDKey struct{}

// WithCorrelationID adds a correlation id to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey{}, correlationID)
}

// GetCorrelationID extracts the correlation id from the context
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns a component logger enriched with any correlation
// id carried by the context.
func LoggerFromContext(ctx context.Context, component string) zerolog.Logger {
	logger := log.Logger.With().Str("component", component)
	if id := GetCorrelationID(ctx); id != "" {
		logger = logger.Str("correlation_id", id)
	}
	return logger.Logger()
}
