package observability

import (
	"context"
	"io"
	"testing"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func quietLogger() *logging.Logger {
	return logging.NewWriterLogger("test", io.Discard, logging.ERROR)
}

func TestDisabledTelemetryKeepsGlobalProvider(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, before, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestEnabledTelemetryInstallsProvider(t *testing.T) {
	before := otel.GetTracerProvider()
	defer otel.SetTracerProvider(before)

	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: true}, quietLogger())
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*trace.TracerProvider)
	assert.True(t, ok)

	// Спанов нет, экспорт не выполняется
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracerProviderCarriesServiceName(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp, err := newTracerProvider(context.Background(), "tileworld-test", trace.WithSpanProcessor(rec))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "chunk.generate")
	span.End()
	require.NoError(t, shutdownWithTimeout(tp)(context.Background()))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "chunk.generate", spans[0].Name())

	var service string
	for _, kv := range spans[0].Resource().Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "tileworld-test", service)
}
