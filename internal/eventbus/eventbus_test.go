package eventbus

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusDeliversFilteredEvents(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var (
		mu  sync.Mutex
		got []ChunkEvent
	)
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventChunkSpawned}}, func(ctx context.Context, ev *Envelope) {
		var p ChunkEvent
		assert.NoError(t, ev.Decode(&p))
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})
	require.NoError(t, err)

	spawned, err := NewChunkEnvelope(EventChunkSpawned, ChunkEvent{X: 1, Y: -2, Tick: 3})
	require.NoError(t, err)
	despawned, err := NewChunkEnvelope(EventChunkDespawned, ChunkEvent{X: 4, Y: 5})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), spawned))
	require.NoError(t, bus.Publish(context.Background(), despawned))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, ChunkEvent{X: 1, Y: -2, Tick: 3}, got[0])
	mu.Unlock()

	assert.NotEmpty(t, spawned.ID)
	assert.NotEqual(t, spawned.ID, despawned.ID)
	assert.Equal(t, SourceChunkManager, spawned.Source)
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	defer bus.Close()

	for i := 0; i < 50; i++ {
		ev, err := NewEnvelope("test", "t", i)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}
	stats := bus.Metrics()
	assert.Equal(t, uint64(50), stats.Published+stats.Dropped)
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewMemoryBus(4)
	bus.Close()
	bus.Close()

	ev, err := NewEnvelope("test", "t", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrBusClosed)
}

func TestLoggingListener(t *testing.T) {
	var (
		mu  sync.Mutex
		buf bytes.Buffer
	)
	logger := logging.NewWriterLogger("events", &lockedWriter{mu: &mu, w: &buf}, logging.DEBUG)

	bus := NewMemoryBus(4)
	sub, err := StartLoggingListener(bus, logger)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ev, err := NewChunkEnvelope(EventChunkDespawned, ChunkEvent{X: 7, Y: 8, Tick: 9})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), "chunk.despawned chunk(7,8) tick=9")
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()

	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg, time.Hour)

	for i := 0; i < 3; i++ {
		ev, err := NewEnvelope("test", "t", i)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	prev := me.collect(Stats{})
	assert.Equal(t, 3.0, testutil.ToFloat64(me.published))

	me.collect(prev)
	assert.Equal(t, 3.0, testutil.ToFloat64(me.published), "повторный сбор без новых событий не меняет счетчик")
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
