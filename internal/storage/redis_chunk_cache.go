package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/go-redis/redis/v8"
)

// RedisCacheStats счетчики горячего кеша
type RedisCacheStats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	ColdHits uint64 `json:"cold_hits"`
	Errors   uint64 `json:"errors"`
}

// RedisChunkCache горячий кеш чанков в Redis, общий для нескольких клиентов.
// При промахе читает из холодного кеша (Read-Through) и прогревает Redis.
// Store пишет в оба уровня.
type RedisChunkCache struct {
	client *redis.Client
	cold   world.ChunkCache // может быть nil
	codec  *chunkCodec
	ttl    time.Duration
	logger *logging.Logger

	hits     uint64
	misses   uint64
	coldHits uint64
	failures uint64
}

// NewRedisChunkCache подключается к Redis и проверяет соединение
func NewRedisChunkCache(cfg config.RedisConfig, cold world.ChunkCache) (*RedisChunkCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis %s: %w", cfg.Addr, err)
	}

	codec, err := newChunkCodec()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	logger := logging.GetStorageLogger()
	logger.Info("🧊 Redis кеш чанков: %s (ttl=%s, холодный уровень: %v)", cfg.Addr, cfg.TTL, cold != nil)

	return &RedisChunkCache{
		client: rdb,
		cold:   cold,
		codec:  codec,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// Load реализует world.ChunkCache
func (r *RedisChunkCache) Load(ctx context.Context, gen uint64, coord vec.Vec2) (*world.ChunkData, bool, error) {
	key := chunkKey(gen, coord)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		data, err := r.codec.decode(val)
		if err != nil {
			atomic.AddUint64(&r.failures, 1)
			return nil, false, fmt.Errorf("чанк %s: %w", coord, err)
		}
		atomic.AddUint64(&r.hits, 1)
		return data, true, nil
	}
	if !errors.Is(err, redis.Nil) {
		atomic.AddUint64(&r.failures, 1)
		return nil, false, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}

	atomic.AddUint64(&r.misses, 1)
	if r.cold == nil {
		return nil, false, nil
	}

	// Read-Through: пробуем холодный уровень
	data, ok, err := r.cold.Load(ctx, gen, coord)
	if err != nil || !ok {
		return nil, false, err
	}
	atomic.AddUint64(&r.coldHits, 1)

	if err := r.set(ctx, key, data); err != nil {
		r.logger.Debug("Не удалось прогреть Redis для %s: %v", coord, err)
	}
	return data, true, nil
}

// Store реализует world.ChunkCache
func (r *RedisChunkCache) Store(ctx context.Context, gen uint64, data *world.ChunkData) error {
	if err := r.set(ctx, chunkKey(gen, data.Coord), data); err != nil {
		return err
	}
	if r.cold != nil {
		return r.cold.Store(ctx, gen, data)
	}
	return nil
}

func (r *RedisChunkCache) set(ctx context.Context, key string, data *world.ChunkData) error {
	compressed, _, err := r.codec.encode(data)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, compressed, r.ttl).Err(); err != nil {
		atomic.AddUint64(&r.failures, 1)
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}
	return nil
}

// Stats счетчики обращений
func (r *RedisChunkCache) Stats() RedisCacheStats {
	return RedisCacheStats{
		Hits:     atomic.LoadUint64(&r.hits),
		Misses:   atomic.LoadUint64(&r.misses),
		ColdHits: atomic.LoadUint64(&r.coldHits),
		Errors:   atomic.LoadUint64(&r.failures),
	}
}

// Close закрывает соединение. Холодный уровень закрывает владелец.
func (r *RedisChunkCache) Close() error {
	err := r.client.Close()
	if cerr := r.codec.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

var _ world.ChunkCache = (*RedisChunkCache)(nil)
