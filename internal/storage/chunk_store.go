package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/dgraph-io/badger/v3"
)

var (
	// ErrNotFound чанка нет в кеше
	ErrNotFound = errors.New("chunk not found")
	// ErrNotReady хранилище закрыто
	ErrNotReady = errors.New("хранилище не готово")
)

// ChunkStore дисковый кеш сгенерированных чанков на BadgerDB.
// Значение: JSON ChunkData, сжатый zstd. Ключ: chunk:<отпечаток генерации>:<x>:<y>.
// Это кеш, а не сохранение мира: удаление директории ничего не ломает.
type ChunkStore struct {
	db     *badger.DB
	dbPath string
	codec  *chunkCodec
	logger *logging.Logger

	mutex   sync.RWMutex
	isReady bool
}

// NewChunkStore открывает хранилище в dataPath/chunks
func NewChunkStore(dataPath string) (*ChunkStore, error) {
	dbPath := filepath.Join(dataPath, "chunks")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	codec, err := newChunkCodec()
	if err != nil {
		db.Close()
		return nil, err
	}

	logger := logging.GetStorageLogger()
	logger.Info("💾 Кеш чанков открыт: %s", dbPath)

	return &ChunkStore{
		db:      db,
		dbPath:  dbPath,
		codec:   codec,
		logger:  logger,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (cs *ChunkStore) Close() error {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if !cs.isReady {
		return nil
	}

	cs.isReady = false
	if err := cs.codec.close(); err != nil {
		cs.logger.Warn("Ошибка закрытия zstd кодера: %v", err)
	}
	return cs.db.Close()
}

// Put сохраняет чанк
func (cs *ChunkStore) Put(gen uint64, data *world.ChunkData) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return ErrNotReady
	}

	compressed, rawLen, err := cs.codec.encode(data)
	if err != nil {
		return err
	}

	err = cs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(chunkKey(gen, data.Coord)), compressed)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	cs.logger.Trace("Чанк %s сохранен: %d -> %d байт", data.Coord, rawLen, len(compressed))
	return nil
}

// Get читает чанк. Если чанка нет, возвращает ErrNotFound.
func (cs *ChunkStore) Get(gen uint64, coord vec.Vec2) (*world.ChunkData, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return nil, ErrNotReady
	}

	var compressed []byte
	err := cs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(chunkKey(gen, coord)))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			compressed = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	data, err := cs.codec.decode(compressed)
	if err != nil {
		return nil, fmt.Errorf("чанк %s: %w", coord, err)
	}
	return data, nil
}

// Delete удаляет чанк из кеша
func (cs *ChunkStore) Delete(gen uint64, coord vec.Vec2) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return ErrNotReady
	}
	return cs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(chunkKey(gen, coord)))
	})
}

// Count количество чанков в кеше для отпечатка генерации
func (cs *ChunkStore) Count(gen uint64) (int, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return 0, ErrNotReady
	}

	prefix := []byte(chunkPrefix(gen))
	count := 0
	err := cs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Load реализует world.ChunkCache: промах не является ошибкой
func (cs *ChunkStore) Load(ctx context.Context, gen uint64, coord vec.Vec2) (*world.ChunkData, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := cs.Get(gen, coord)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Store реализует world.ChunkCache
func (cs *ChunkStore) Store(ctx context.Context, gen uint64, data *world.ChunkData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return cs.Put(gen, data)
}

var _ world.ChunkCache = (*ChunkStore)(nil)
