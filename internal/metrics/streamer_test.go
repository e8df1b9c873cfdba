package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStreamerMetrics(reg)

	m.ChunkSubmitted()
	m.ChunkSubmitted()
	m.ChunkApplied("generated")
	m.ChunkApplied("cache")
	m.SubmitDeferred("throttle", 3)
	m.SubmitDeferred("queue_full", 0)
	m.SetCounts(5, 2)
	m.ObserveGeneration(2 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.applied.WithLabelValues("cache")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.deferred.WithLabelValues("throttle")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.resident))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pending))

	count, err := testutil.GatherAndCount(reg, "tileworld_chunk_generation_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *StreamerMetrics
	assert.NotPanics(t, func() {
		m.ChunkSubmitted()
		m.ChunkApplied("generated")
		m.ChunkDespawned()
		m.DuplicateCompletion()
		m.SetCounts(1, 1)
		m.ObserveTick(time.Millisecond)
		m.StoreResult("hit")
	})
}

func TestRegisterNoiseCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	var hits, misses uint64 = 7, 3
	require.NoError(t, RegisterNoiseCache(reg, func() (uint64, uint64) { return hits, misses }))

	expected := `
# HELP tileworld_noise_cache_hits_total Попадания в кеш уровней рельефа.
# TYPE tileworld_noise_cache_hits_total counter
tileworld_noise_cache_hits_total 7
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tileworld_noise_cache_hits_total"))

	assert.Error(t, RegisterNoiseCache(reg, func() (uint64, uint64) { return 0, 0 }), "повторная регистрация")
}
