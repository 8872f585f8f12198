package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupOpenTelemetryWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	ctx := context.Background()
	gotCtx, shutdown, err := SetupOpenTelemetry(ctx)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.Equal(t, ctx, gotCtx)

	// Shutdown of the disabled setup is a no-op
	shutdown()
}
