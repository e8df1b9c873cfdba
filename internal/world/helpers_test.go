package world

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Terrain.Seed = 0
	cfg.Terrain.LayerRange = []float64{0, 0.3, 0.6, 0.65, 1.2, 1.6, 2.0}
	cfg.Terrain.WaterLevel = 2
	cfg.Chunks.Width = 8
	cfg.Chunks.Height = 8
	cfg.Chunks.SpawnRadiusX = 6
	cfg.Chunks.SpawnRadiusY = 4
	r := float64(8*6+8*4)*cfg.Chunks.TilePx + 2
	cfg.Chunks.DespawnDistanceSq = r * r
	cfg.Chunks.Workers = 4
	cfg.Chunks.QueueSize = 256
	cfg.Chunks.VariantSeed = 12345
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestGenerator(t *testing.T, cfg *config.Config) *ChunkGenerator {
	t.Helper()
	gen, field, err := NewGeneratorFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(field.Close)
	return gen
}

func quietLogger() *logging.Logger {
	return logging.NewWriterLogger("chunks", io.Discard, logging.ERROR)
}

func newTestManager(t *testing.T, cfg *config.Config, sink MutationSink, viewers ViewerRegistry, opts ...ManagerOption) *ChunkManager {
	t.Helper()
	opts = append([]ManagerOption{WithLogger(quietLogger())}, opts...)
	m, err := NewChunkManager(context.Background(), &cfg.Chunks, newTestGenerator(t, cfg), sink, viewers, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// drainAll собирает результаты, пока не останется задач в работе
func drainAll(t *testing.T, m *ChunkManager) int {
	t.Helper()
	applied := 0
	deadline := time.Now().Add(10 * time.Second)
	for m.Stats().Pending > 0 {
		applied += m.DrainCompleted(context.Background())
		if time.Now().After(deadline) {
			t.Fatalf("генерация не завершилась: в работе %d", m.Stats().Pending)
		}
		time.Sleep(time.Millisecond)
	}
	return applied
}
