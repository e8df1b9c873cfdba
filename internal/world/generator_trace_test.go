package world

import (
	"context"
	"testing"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGenerateRecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	gen := newTestGenerator(t, testConfig(t))
	gen.tracer = tp.Tracer("test")

	data := gen.Generate(context.Background(), vec.Vec2{X: -2, Y: 3})

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "chunk.generate", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(-2), attrs["chunk.x"].AsInt64())
	assert.Equal(t, int64(3), attrs["chunk.y"].AsInt64())
	assert.Equal(t, int64(len(data.Border)), attrs["chunk.border_tiles"].AsInt64())
}
