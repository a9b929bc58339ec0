package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetCorrelationID(ctx))

	ctx = WithCorrelationID(ctx, "corr-1")
	assert.Equal(t, "corr-1", GetCorrelationID(ctx))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = previous }()

	ctx := WithCorrelationID(context.Background(), "corr-1")
	logger := LoggerFromContext(ctx, "discovery")
	logger.Info().Msg("request sent")

	out := buf.String()
	assert.Contains(t, out, `"component":"discovery"`)
	assert.Contains(t, out, `"correlation_id":"corr-1"`)
}

func TestLoggerFromContext_NoCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = previous }()

	logger := LoggerFromContext(context.Background(), "transport")
	logger.Info().Msg("request sent")

	out := buf.String()
	assert.Contains(t, out, `"component":"transport"`)
	assert.NotContains(t, out, "correlation_id")
}
