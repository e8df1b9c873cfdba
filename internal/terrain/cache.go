package terrain

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
)

// CacheStats статистика кеша уровней
type CacheStats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Capacity int64  `json:"capacity"`
}

// noiseCache ограниченный потокобезопасный кеш (x,y) -> уровень.
// Промах никогда не является ошибкой: значение просто вычисляется заново.
type noiseCache struct {
	cache    *ristretto.Cache
	capacity int64
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// newNoiseCache создает кеш на capacity записей. capacity == 0 отключает кеширование.
func newNoiseCache(capacity int64) (*noiseCache, error) {
	nc := &noiseCache{capacity: capacity}
	if capacity == 0 {
		return nc, nil
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        capacity * 10,
		MaxCost:            capacity,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания кеша шума: %w", err)
	}
	nc.cache = c
	return nc, nil
}

// tileKey упаковывает пару координат в один ключ.
// Координаты за пределами int32 могут совпасть по ключу, поэтому
// запись хранит исходную пару и сверяет ее при чтении.
func tileKey(x, y int) uint64 {
	return uint64(uint32(int32(x)))<<32 | uint64(uint32(int32(y)))
}

// cachedLevel значение кеша вместе с координатами тайла
type cachedLevel struct {
	x, y  int
	level TerrainLevel
}

func (c *noiseCache) get(x, y int) (TerrainLevel, bool) {
	if c.cache == nil {
		c.misses.Add(1)
		return 0, false
	}
	if v, ok := c.cache.Get(tileKey(x, y)); ok {
		if e := v.(cachedLevel); e.x == x && e.y == y {
			c.hits.Add(1)
			return e.level, true
		}
	}
	c.misses.Add(1)
	return 0, false
}

// set вставляет значение. Отброшенная вставка молча игнорируется.
func (c *noiseCache) set(x, y int, level TerrainLevel) {
	if c.cache == nil {
		return
	}
	c.cache.Set(tileKey(x, y), cachedLevel{x: x, y: y, level: level}, 1)
}

// wait дожидается применения буферизованных вставок
func (c *noiseCache) wait() {
	if c.cache != nil {
		c.cache.Wait()
	}
}

func (c *noiseCache) stats() CacheStats {
	return CacheStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Capacity: c.capacity,
	}
}

func (c *noiseCache) close() {
	if c.cache != nil {
		c.cache.Close()
	}
}
