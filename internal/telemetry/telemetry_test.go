package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func keepProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	keepProvider(t)
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), "tournament_bot", "test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestSetupInstallsProvider(t *testing.T) {
	keepProvider(t)

	// 192.0.2.0/24 is reserved for documentation, nothing answers there
	shutdown, err := Setup(context.Background(), "tournament_bot", "test", "http://192.0.2.1:4318")
	require.NoError(t, err)
	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	span.End()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
