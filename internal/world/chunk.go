package world

import (
	"github.com/annel0/tileworld/internal/terrain"
	"github.com/annel0/tileworld/internal/tileset"
	"github.com/annel0/tileworld/internal/vec"
)

// Tile тайл базового слоя
type Tile struct {
	Art   tileset.TileArtID    `json:"art"`
	Level terrain.TerrainLevel `json:"level"`
	Mask  terrain.EdgeMask     `json:"mask"`
}

// BorderTile тайл переходного слоя
type BorderTile struct {
	Local vec.Vec2          `json:"local"`
	Art   tileset.TileArtID `json:"art"`
}

// ChunkData результат генерации одного чанка.
// После генерации не изменяется, поэтому разделяется между горутинами без блокировок.
type ChunkData struct {
	Coord  vec.Vec2     `json:"coord"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Base   []Tile       `json:"base"`   // Base[y*Width+x]
	Border []BorderTile `json:"border"` // Разреженный слой
}

// NewChunkData создает пустой чанк размером width x height
func NewChunkData(coord vec.Vec2, width, height int) *ChunkData {
	return &ChunkData{
		Coord:  coord,
		Width:  width,
		Height: height,
		Base:   make([]Tile, width*height),
	}
}

func (c *ChunkData) index(local vec.Vec2) int {
	return local.Y*c.Width + local.X
}

// InBounds проверяет, что локальные координаты внутри чанка
func (c *ChunkData) InBounds(local vec.Vec2) bool {
	return local.X >= 0 && local.Y >= 0 && local.X < c.Width && local.Y < c.Height
}

// TileAt тайл базового слоя
func (c *ChunkData) TileAt(local vec.Vec2) Tile {
	return c.Base[c.index(local)]
}

// SetTile записывает тайл базового слоя
func (c *ChunkData) SetTile(local vec.Vec2, t Tile) {
	c.Base[c.index(local)] = t
}

// AddBorder добавляет тайл переходного слоя
func (c *ChunkData) AddBorder(local vec.Vec2, art tileset.TileArtID) {
	c.Border = append(c.Border, BorderTile{Local: local, Art: art})
}

// BorderAt ищет тайл переходного слоя
func (c *ChunkData) BorderAt(local vec.Vec2) (tileset.TileArtID, bool) {
	for _, b := range c.Border {
		if b.Local == local {
			return b.Art, true
		}
	}
	return 0, false
}

// Valid проверяет согласованность размеров (данные из кеша)
func (c *ChunkData) Valid(width, height int) bool {
	if c == nil || c.Width != width || c.Height != height || len(c.Base) != width*height {
		return false
	}
	for _, b := range c.Border {
		if !c.InBounds(b.Local) {
			return false
		}
	}
	return true
}
