package world

import (
	"math"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/vec"
)

// Grid связывает три системы координат: пиксели мира, тайлы и чанки.
// Все переходы используют деление с округлением вниз.
type Grid struct {
	ChunkSize vec.Vec2 // Размер чанка в тайлах
	TilePx    float64  // Размер тайла в пикселях
}

// NewGrid создает сетку по конфигурации чанков
func NewGrid(cfg *config.ChunkConfig) Grid {
	return Grid{
		ChunkSize: vec.Vec2{X: cfg.Width, Y: cfg.Height},
		TilePx:    cfg.TilePx,
	}
}

// TileToChunk координаты чанка, содержащего тайл
func (g Grid) TileToChunk(tile vec.Vec2) vec.Vec2 {
	return tile.ToChunkCoords(g.ChunkSize)
}

// RelativeTile локальные координаты тайла внутри его чанка
func (g Grid) RelativeTile(tile vec.Vec2) vec.Vec2 {
	return tile.LocalInChunk(g.ChunkSize)
}

// ChunkOrigin глобальные координаты тайла (0,0) чанка
func (g Grid) ChunkOrigin(chunk vec.Vec2) vec.Vec2 {
	return chunk.Mul(g.ChunkSize)
}

// ChunkToPixel пиксельная привязка чанка (левый нижний угол)
func (g Grid) ChunkToPixel(chunk vec.Vec2) vec.Vec2Float {
	origin := g.ChunkOrigin(chunk)
	return vec.Vec2Float{X: float64(origin.X) * g.TilePx, Y: float64(origin.Y) * g.TilePx}
}

// TileToPixel пиксельная привязка тайла
func (g Grid) TileToPixel(tile vec.Vec2) vec.Vec2Float {
	return vec.Vec2Float{X: float64(tile.X) * g.TilePx, Y: float64(tile.Y) * g.TilePx}
}

// PixelToTile тайл, содержащий точку мира
func (g Grid) PixelToTile(p vec.Vec2Float) vec.Vec2 {
	return vec.Vec2{
		X: int(math.Floor(p.X / g.TilePx)),
		Y: int(math.Floor(p.Y / g.TilePx)),
	}
}

// PixelToChunk чанк, содержащий точку мира
func (g Grid) PixelToChunk(p vec.Vec2Float) vec.Vec2 {
	return g.TileToChunk(g.PixelToTile(p))
}
