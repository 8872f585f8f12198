// Package telemetry wires up OpenTelemetry export for the harness.
package telemetry

import (
	"context"
	"os"

	"github.com/honeycombio/otel-config-go/otelconfig"
)

// SetupOpenTelemetry configures the OpenTelemetry SDK from the environment.
// When no OTLP endpoint is configured, tracing stays disabled so runs on a
// developer machine do not spam connection errors. The returned shutdown
// function flushes pending spans.
func SetupOpenTelemetry(ctx context.Context, opts ...otelconfig.Option) (context.Context, func(), error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return ctx, func() {}, nil
	}

	shutdown, err := otelconfig.ConfigureOpenTelemetry(opts...)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, shutdown, nil
}
