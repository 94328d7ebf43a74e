package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestResourceAttributes(t *testing.T) {
	attrs := resourceAttributes(
		WithConfig("abc123def456", "scheduled"),
		WithExchange("NYSE", "America/New_York"),
		WithAttributes(attribute.Int("trader.tickers", 8)),
	)

	got := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, serviceName, got["service.name"].AsString())
	assert.NotEmpty(t, got["service.version"].AsString())
	assert.Equal(t, "abc123def456", got["trader.config"].AsString())
	assert.Equal(t, "scheduled", got["trader.mode"].AsString())
	assert.Equal(t, "NYSE", got["trader.exchange"].AsString())
	assert.Equal(t, "America/New_York", got["trader.timezone"].AsString())
	assert.EqualValues(t, 8, got["trader.tickers"].AsInt64())
}

func TestInitDisabled(t *testing.T) {
	t.Setenv("LOG_TRACING_ENABLED", "false")
	require.NoError(t, Init(WithExchange("NYSE", "America/New_York")))
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
}
