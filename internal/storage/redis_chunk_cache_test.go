package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	codec, err := newChunkCodec()
	require.NoError(t, err)
	defer codec.close()

	original := testChunk(vec.Vec2{X: 5, Y: -5})
	compressed, rawLen, err := codec.encode(original)
	require.NoError(t, err)
	assert.Less(t, len(compressed), rawLen)

	decoded, err := codec.decode(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	_, err = codec.decode([]byte("не zstd"))
	assert.Error(t, err)
}

func TestChunkKey(t *testing.T) {
	assert.Equal(t, "chunk:000000000000002a:-3:7", chunkKey(42, vec.Vec2{X: -3, Y: 7}))
}

// Требует живой Redis: TILEWORLD_TEST_REDIS_ADDR=localhost:6379
func TestRedisChunkCacheReadThrough(t *testing.T) {
	addr := os.Getenv("TILEWORLD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TILEWORLD_TEST_REDIS_ADDR не задан")
	}

	cold := setupTestStore(t)
	cache, err := NewRedisChunkCache(config.RedisConfig{Addr: addr, PoolSize: 2, TTL: time.Minute}, cold)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	gen := uint64(time.Now().UnixNano())
	coord := vec.Vec2{X: 1, Y: 2}

	_, ok, err := cache.Load(ctx, gen, coord)
	require.NoError(t, err)
	assert.False(t, ok)

	// Чанк есть только в холодном уровне
	original := testChunk(coord)
	require.NoError(t, cold.Put(gen, original))

	data, ok, err := cache.Load(ctx, gen, coord)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original, data)
	assert.Equal(t, uint64(1), cache.Stats().ColdHits)

	// Второе чтение из Redis
	_, ok, err = cache.Load(ctx, gen, coord)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), cache.Stats().Hits)

	// Store пишет в оба уровня
	other := testChunk(vec.Vec2{X: 9})
	require.NoError(t, cache.Store(ctx, gen, other))
	fromCold, err := cold.Get(gen, other.Coord)
	require.NoError(t, err)
	assert.Equal(t, other, fromCold)
}
