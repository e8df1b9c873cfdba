package world

import (
	"github.com/annel0/tileworld/internal/terrain"
	"github.com/annel0/tileworld/internal/tileset"
	"github.com/annel0/tileworld/internal/vec"
)

// AtlasRef непрозрачная ссылка на атлас тайлов. Передается приемнику мутаций без изменений.
type AtlasRef interface{}

// MutationKind тип мутации мира
type MutationKind uint8

const (
	MutationSpawnLayer MutationKind = iota
	MutationDespawnChunk
)

func (k MutationKind) String() string {
	switch k {
	case MutationSpawnLayer:
		return "spawn_layer"
	case MutationDespawnChunk:
		return "despawn_chunk"
	default:
		return "unknown"
	}
}

// TilePlacement тайл слоя в локальных координатах чанка
type TilePlacement struct {
	Local vec.Vec2             `json:"local"`
	Art   tileset.TileArtID    `json:"art"`
	Level terrain.TerrainLevel `json:"level"`
}

// Mutation описание одной операции над миром
type Mutation struct {
	Kind   MutationKind
	Chunk  vec.Vec2
	Layer  TileLayer
	Z      float32
	Anchor vec.Vec2Float // Пиксельная привязка чанка
	Atlas  AtlasRef
	Tiles  []TilePlacement
}

// MutationBatch упорядоченный набор мутаций, применяемый атомарно
type MutationBatch []Mutation

// MutationSink принимает мутации на потребляющей стороне.
// Apply применяет пакет целиком либо не применяет ничего.
type MutationSink interface {
	Apply(batch MutationBatch) error
}

// BuildSpawnBatch собирает мутации появления чанка: базовый слой и, если есть, переходный
func BuildSpawnBatch(data *ChunkData, grid Grid, atlas AtlasRef) MutationBatch {
	anchor := grid.ChunkToPixel(data.Coord)

	base := make([]TilePlacement, 0, len(data.Base))
	for y := 0; y < data.Height; y++ {
		for x := 0; x < data.Width; x++ {
			local := vec.Vec2{X: x, Y: y}
			t := data.TileAt(local)
			base = append(base, TilePlacement{Local: local, Art: t.Art, Level: t.Level})
		}
	}

	batch := MutationBatch{{
		Kind:   MutationSpawnLayer,
		Chunk:  data.Coord,
		Layer:  LayerBase,
		Z:      LayerBase.Z(),
		Anchor: anchor,
		Atlas:  atlas,
		Tiles:  base,
	}}

	if len(data.Border) > 0 {
		border := make([]TilePlacement, 0, len(data.Border))
		for _, b := range data.Border {
			border = append(border, TilePlacement{Local: b.Local, Art: b.Art, Level: data.TileAt(b.Local).Level})
		}
		batch = append(batch, Mutation{
			Kind:   MutationSpawnLayer,
			Chunk:  data.Coord,
			Layer:  LayerBorder,
			Z:      LayerBorder.Z(),
			Anchor: anchor,
			Atlas:  atlas,
			Tiles:  border,
		})
	}
	return batch
}

// BuildDespawnBatch собирает мутацию выгрузки чанка
func BuildDespawnBatch(coord vec.Vec2) MutationBatch {
	return MutationBatch{{Kind: MutationDespawnChunk, Chunk: coord}}
}
