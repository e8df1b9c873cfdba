package world

import (
	"testing"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunk(coord vec.Vec2, withBorder bool) *ChunkData {
	data := NewChunkData(coord, 2, 2)
	for i := range data.Base {
		data.Base[i] = Tile{Art: 10, Level: 1}
	}
	if withBorder {
		data.Base[3].Mask = 0b010_0_0_000
		data.AddBorder(vec.Vec2{X: 1, Y: 1}, 42)
	}
	return data
}

func TestBuildSpawnBatch(t *testing.T) {
	g := Grid{ChunkSize: vec.Vec2{X: 2, Y: 2}, TilePx: 16}

	batch := BuildSpawnBatch(sampleChunk(vec.Vec2{X: 1, Y: -1}, true), g, "atlas")
	require.Len(t, batch, 2)

	assert.Equal(t, MutationSpawnLayer, batch[0].Kind)
	assert.Equal(t, LayerBase, batch[0].Layer)
	assert.Len(t, batch[0].Tiles, 4)
	assert.Equal(t, vec.Vec2Float{X: 32, Y: -32}, batch[0].Anchor)
	assert.Equal(t, "atlas", batch[0].Atlas)

	assert.Equal(t, LayerBorder, batch[1].Layer)
	assert.Greater(t, batch[1].Z, batch[0].Z)
	assert.Equal(t, []TilePlacement{{Local: vec.Vec2{X: 1, Y: 1}, Art: 42, Level: 1}}, batch[1].Tiles)

	assert.Len(t, BuildSpawnBatch(sampleChunk(vec.Vec2{}, false), g, nil), 1)
}

func TestTileWorldApplyIsAtomic(t *testing.T) {
	g := Grid{ChunkSize: vec.Vec2{X: 2, Y: 2}, TilePx: 16}
	w := NewTileWorld()

	a := vec.Vec2{X: 0, Y: 0}
	require.NoError(t, w.Apply(BuildSpawnBatch(sampleChunk(a, true), g, nil)))
	assert.True(t, w.HasChunk(a))
	layer, ok := w.Layer(a, LayerBorder)
	require.True(t, ok)
	assert.Len(t, layer.Tiles, 1)

	// второй чанк в пакете конфликтует с уже загруженным: не применяется ничего
	b := vec.Vec2{X: 5, Y: 5}
	batch := append(BuildSpawnBatch(sampleChunk(b, false), g, nil), BuildSpawnBatch(sampleChunk(a, false), g, nil)...)
	err := w.Apply(batch)
	assert.ErrorIs(t, err, ErrLayerExists)
	assert.False(t, w.HasChunk(b))
	assert.Equal(t, uint64(1), w.AppliedBatches())

	require.NoError(t, w.Apply(BuildDespawnBatch(a)))
	assert.False(t, w.HasChunk(a))
	assert.Zero(t, w.ChunkCount())

	// выгрузка отсутствующего чанка не ошибка
	assert.NoError(t, w.Apply(BuildDespawnBatch(a)))
}

func TestViewerSet(t *testing.T) {
	v := NewViewerSet()
	v.Set("b", vec.Vec2Float{X: 2})
	v.Set("a", vec.Vec2Float{X: 1})
	assert.Equal(t, []vec.Vec2Float{{X: 1}, {X: 2}}, v.ViewerPositions())

	v.Remove("a")
	_, ok := v.Get("a")
	assert.False(t, ok)
	assert.Len(t, v.ViewerPositions(), 1)
}
