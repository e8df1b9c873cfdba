package world

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/terrain"
	"github.com/annel0/tileworld/internal/tileset"
	"github.com/annel0/tileworld/internal/vec"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChunkGenerator синтезирует тайлы чанка из поля уровней, масок переходов и таблиц тайлсета.
// Генератор не имеет изменяемого состояния и вызывается из нескольких воркеров одновременно.
type ChunkGenerator struct {
	levels      terrain.LevelSource
	masks       *terrain.EdgeMaskEngine
	selector    *tileset.Selector
	grid        Grid
	variantSeed int64
	tracer      trace.Tracer
}

// NewChunkGenerator создаёт генератор. variantSeed == 0 берет сид вариантов от текущего времени:
// выбор плоских вариантов намеренно недетерминирован между запусками.
func NewChunkGenerator(levels terrain.LevelSource, masks *terrain.EdgeMaskEngine, selector *tileset.Selector, grid Grid, variantSeed int64) *ChunkGenerator {
	if variantSeed == 0 {
		variantSeed = time.Now().UnixNano()
	}
	return &ChunkGenerator{
		levels:      levels,
		masks:       masks,
		selector:    selector,
		grid:        grid,
		variantSeed: variantSeed,
		tracer:      otel.Tracer("github.com/annel0/tileworld/internal/world"),
	}
}

// NewGeneratorFromConfig собирает поле шума, движок масок, селектор и генератор.
// Поле шума возвращается отдельно: его нужно закрыть после остановки воркеров.
func NewGeneratorFromConfig(cfg *config.Config) (*ChunkGenerator, *terrain.NoiseField, error) {
	field, err := terrain.NewNoiseField(&cfg.Terrain)
	if err != nil {
		return nil, nil, err
	}
	if int(cfg.Terrain.WaterLevel) >= field.Levels() {
		field.Close()
		return nil, nil, fmt.Errorf("%w: water_level %d вне диапазона уровней", config.ErrInvalidConfig, cfg.Terrain.WaterLevel)
	}

	selector, err := tileset.NewSelector(&cfg.Tileset, field.Levels())
	if err != nil {
		field.Close()
		return nil, nil, err
	}

	masks := terrain.NewEdgeMaskEngine(field, terrain.TerrainLevel(cfg.Terrain.WaterLevel))
	return NewChunkGenerator(field, masks, selector, NewGrid(&cfg.Chunks), cfg.Chunks.VariantSeed), field, nil
}

// Grid сетка генератора
func (g *ChunkGenerator) Grid() Grid {
	return g.grid
}

// VariantSeed сид выбора вариантов
func (g *ChunkGenerator) VariantSeed() int64 {
	return g.variantSeed
}

// chunkRand локальный генератор случайных чисел чанка.
// Уникальный сид на основе сида вариантов и координат.
func (g *ChunkGenerator) chunkRand(coord vec.Vec2) *rand.Rand {
	seed := g.variantSeed + int64(coord.X*31) + int64(coord.Y*17)
	return rand.New(rand.NewSource(seed))
}

// Generate генерирует чанк по его координатам.
// Ошибки статических таблиц (нет уровня, нет маски при strict_corners) приводят к панике.
func (g *ChunkGenerator) Generate(ctx context.Context, coord vec.Vec2) *ChunkData {
	_, span := g.tracer.Start(ctx, "chunk.generate", trace.WithAttributes(
		attribute.Int("chunk.x", coord.X),
		attribute.Int("chunk.y", coord.Y),
	))
	defer span.End()

	rng := g.chunkRand(coord)
	data := NewChunkData(coord, g.grid.ChunkSize.X, g.grid.ChunkSize.Y)
	origin := g.grid.ChunkOrigin(coord)

	for y := 0; y < data.Height; y++ {
		for x := 0; x < data.Width; x++ {
			local := vec.Vec2{X: x, Y: y}
			globalX := origin.X + x
			globalY := origin.Y + y

			level := g.levels.GetLevel(globalX, globalY)
			mask := g.masks.ComputeMask(level, globalX, globalY)

			// Под переходом базовый слой рисуется уровнем, сдвинутым к воде
			artLevel := level
			if mask != 0 {
				artLevel = g.masks.AdjustToWaterLevel(level)
			}

			data.SetTile(local, Tile{
				Art:   g.selector.MustSelectFlatTile(artLevel, rng),
				Level: level,
				Mask:  mask,
			})

			if mask != 0 {
				data.AddBorder(local, g.selector.MustSelectBorderTile(mask, level))
			}
		}
	}

	span.SetAttributes(attribute.Int("chunk.border_tiles", len(data.Border)))
	return data
}

// TileInfo диагностическое описание одного тайла
type TileInfo struct {
	Tile       vec.Vec2             `json:"tile"`
	Chunk      vec.Vec2             `json:"chunk"`
	Local      vec.Vec2             `json:"local"`
	Sample     float64              `json:"sample,omitempty"`
	Level      terrain.TerrainLevel `json:"level"`
	Adjusted   terrain.TerrainLevel `json:"adjusted"`
	Mask       terrain.EdgeMask     `json:"mask"`
	MaskString string               `json:"mask_string"`
	FlatArt    tileset.TileArtID    `json:"flat_art"`
	BorderArt  *tileset.TileArtID   `json:"border_art,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// sampler источник непрерывных значений шума (NoiseField)
type sampler interface {
	Sample(x, y int) float64
}

// InspectTile вычисляет уровень, маску и арт одного тайла без паники на ошибках таблиц
func (g *ChunkGenerator) InspectTile(tile vec.Vec2) TileInfo {
	level := g.levels.GetLevel(tile.X, tile.Y)
	mask := g.masks.ComputeMask(level, tile.X, tile.Y)

	info := TileInfo{
		Tile:       tile,
		Chunk:      g.grid.TileToChunk(tile),
		Local:      g.grid.RelativeTile(tile),
		Level:      level,
		Adjusted:   g.masks.AdjustToWaterLevel(level),
		Mask:       mask,
		MaskString: mask.String(),
	}
	if s, ok := g.levels.(sampler); ok {
		info.Sample = s.Sample(tile.X, tile.Y)
	}

	artLevel := level
	if mask != 0 {
		artLevel = info.Adjusted
	}
	rng := g.chunkRand(info.Chunk)
	art, err := g.selector.SelectFlatTile(artLevel, rng)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.FlatArt = art

	if mask != 0 {
		border, err := g.selector.SelectBorderTile(mask, level)
		if err != nil {
			info.Error = err.Error()
			return info
		}
		info.BorderArt = &border
	}
	return info
}
