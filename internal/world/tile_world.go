package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/tileworld/internal/vec"
)

// ErrLayerExists слой чанка уже существует в мире
var ErrLayerExists = errors.New("chunk layer already spawned")

// SpawnedLayer слой тайлов, размещенный в мире
type SpawnedLayer struct {
	Z      float32
	Anchor vec.Vec2Float
	Atlas  AtlasRef
	Tiles  []TilePlacement
}

// TileWorld простой приемник мутаций в памяти: хранит размещенные слои по чанкам.
// Заменяет хост-движок в демо-клиенте и тестах.
type TileWorld struct {
	mu      sync.RWMutex
	chunks  map[vec.Vec2]*[MaxLayers]*SpawnedLayer
	applied uint64
}

// NewTileWorld создает пустой мир
func NewTileWorld() *TileWorld {
	return &TileWorld{chunks: make(map[vec.Vec2]*[MaxLayers]*SpawnedLayer)}
}

// Apply проверяет весь пакет и только затем применяет его
func (w *TileWorld) Apply(batch MutationBatch) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, m := range batch {
		switch m.Kind {
		case MutationSpawnLayer:
			if m.Layer >= MaxLayers {
				return fmt.Errorf("неизвестный слой %d чанка %s", m.Layer, m.Chunk)
			}
			if layers, ok := w.chunks[m.Chunk]; ok && layers[m.Layer] != nil {
				return fmt.Errorf("%w: %s слой %s", ErrLayerExists, m.Chunk, m.Layer)
			}
		case MutationDespawnChunk:
		default:
			return fmt.Errorf("неизвестный тип мутации %d", m.Kind)
		}
	}

	for _, m := range batch {
		switch m.Kind {
		case MutationSpawnLayer:
			layers, ok := w.chunks[m.Chunk]
			if !ok {
				layers = &[MaxLayers]*SpawnedLayer{}
				w.chunks[m.Chunk] = layers
			}
			layers[m.Layer] = &SpawnedLayer{Z: m.Z, Anchor: m.Anchor, Atlas: m.Atlas, Tiles: m.Tiles}
		case MutationDespawnChunk:
			delete(w.chunks, m.Chunk)
		}
	}
	w.applied++
	return nil
}

// HasChunk проверяет, что у чанка есть хотя бы один слой
func (w *TileWorld) HasChunk(coord vec.Vec2) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.chunks[coord]
	return ok
}

// Layer возвращает слой чанка
func (w *TileWorld) Layer(coord vec.Vec2, layer TileLayer) (*SpawnedLayer, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	layers, ok := w.chunks[coord]
	if !ok || layer >= MaxLayers || layers[layer] == nil {
		return nil, false
	}
	return layers[layer], true
}

// ChunkCount количество чанков в мире
func (w *TileWorld) ChunkCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.chunks)
}

// Chunks координаты всех чанков, отсортированные по X, затем Y
func (w *TileWorld) Chunks() []vec.Vec2 {
	w.mu.RLock()
	out := make([]vec.Vec2, 0, len(w.chunks))
	for c := range w.chunks {
		out = append(out, c)
	}
	w.mu.RUnlock()

	sortCoords(out)
	return out
}

// AppliedBatches количество успешно примененных пакетов
func (w *TileWorld) AppliedBatches() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.applied
}

func sortCoords(coords []vec.Vec2) {
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Y < coords[j].Y
	})
}
