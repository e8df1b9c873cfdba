package eventbus

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "tileworld.chunk.spawned", subjectFor(EventChunkSpawned))
	assert.Equal(t, "tileworld.>", subjectFor(""))
}

func TestJetStreamPublishDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var mu sync.Mutex
	var subjects []string
	bus := newOutboundBus(2, func(ctx context.Context, subject string, data []byte) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release // сервер не отвечает
		mu.Lock()
		subjects = append(subjects, subject)
		mu.Unlock()
		return nil
	})

	ev, err := NewChunkEnvelope(EventChunkSpawned, ChunkEvent{X: 1})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), ev))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("отправитель не запустился")
	}

	start := time.Now()
	for i := 0; i < 9; i++ {
		require.NoError(t, bus.Publish(context.Background(), ev))
	}
	assert.Less(t, time.Since(start), time.Second, "публикация не ждет подтверждения")

	// Одно событие у отправителя, два в очереди, остальные отброшены
	m := bus.Metrics()
	assert.Equal(t, uint64(7), m.Dropped)
	assert.Equal(t, 2, m.InFlight)

	close(release)
	bus.Close()

	m = bus.Metrics()
	assert.Equal(t, uint64(3), m.Published, "Close отправляет остаток очереди")
	assert.Zero(t, m.InFlight)
	mu.Lock()
	assert.Equal(t, []string{"tileworld.chunk.spawned", "tileworld.chunk.spawned", "tileworld.chunk.spawned"}, subjects)
	mu.Unlock()

	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrBusClosed)
	bus.Close()
}

func TestJetStreamPublishFailureCountsDrop(t *testing.T) {
	bus := newOutboundBus(4, func(ctx context.Context, subject string, data []byte) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("нет дедлайна")
		}
		return errors.New("nats: timeout")
	})

	ev, err := NewChunkEnvelope(EventChunkDespawned, ChunkEvent{X: 2})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))
	bus.Close()

	assert.Equal(t, uint64(1), bus.Metrics().Dropped)
	assert.Zero(t, bus.Metrics().Published)
}

// Требует живой NATS с JetStream: TILEWORLD_TEST_NATS_URL=nats://127.0.0.1:4222
func TestJetStreamBusRoundTrip(t *testing.T) {
	url := os.Getenv("TILEWORLD_TEST_NATS_URL")
	if url == "" {
		t.Skip("TILEWORLD_TEST_NATS_URL не задан")
	}

	bus, err := NewJetStreamBus(url, "TILEWORLD_TEST", time.Minute, 16)
	require.NoError(t, err)
	defer bus.Close()

	got := make(chan ChunkEvent, 1)
	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventChunkSpawned}}, func(ctx context.Context, ev *Envelope) {
		var payload ChunkEvent
		if ev.Decode(&payload) == nil {
			got <- payload
		}
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ev, err := NewChunkEnvelope(EventChunkSpawned, ChunkEvent{X: 3, Y: -1, Tick: 9})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))

	select {
	case p := <-got:
		assert.Equal(t, 3, p.X)
		assert.Equal(t, -1, p.Y)
	case <-time.After(5 * time.Second):
		t.Fatal("событие не доставлено")
	}
	assert.Eventually(t, func() bool { return bus.Metrics().Published == 1 }, 5*time.Second, 10*time.Millisecond)
}
