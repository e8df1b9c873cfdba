package terrain

import "strings"

// EdgeMask 8-битная маска соседей, которые "ниже" тайла относительно уровня воды.
// Раскладка битов совпадает с ключами таблицы углов:
//
//	NW N NE | W | E | SW S SE
//	 7 6  5   4   3    2 1  0
type EdgeMask uint8

const (
	MaskSE EdgeMask = 1 << iota
	MaskS
	MaskSW
	MaskE
	MaskW
	MaskNE
	MaskN
	MaskNW
)

// neighbor смещение соседа и его бит. Север это +Y.
type neighbor struct {
	dx, dy int
	bit    EdgeMask
	name   string
}

var neighbors = [...]neighbor{
	{-1, 1, MaskNW, "NW"},
	{0, 1, MaskN, "N"},
	{1, 1, MaskNE, "NE"},
	{-1, 0, MaskW, "W"},
	{1, 0, MaskE, "E"},
	{-1, -1, MaskSW, "SW"},
	{0, -1, MaskS, "S"},
	{1, -1, MaskSE, "SE"},
}

// Has проверяет, выставлен ли бит
func (m EdgeMask) Has(bit EdgeMask) bool {
	return m&bit != 0
}

func (m EdgeMask) String() string {
	if m == 0 {
		return "-"
	}
	parts := make([]string, 0, 8)
	for _, n := range neighbors {
		if m.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// LevelSource источник уровней рельефа по координатам тайла
type LevelSource interface {
	GetLevel(x, y int) TerrainLevel
}

// EdgeMaskEngine вычисляет маски переходов между уровнями рельефа
type EdgeMaskEngine struct {
	source LevelSource
	water  TerrainLevel
}

// NewEdgeMaskEngine создает движок масок поверх источника уровней
func NewEdgeMaskEngine(source LevelSource, water TerrainLevel) *EdgeMaskEngine {
	return &EdgeMaskEngine{source: source, water: water}
}

// WaterLevel уровень воды
func (e *EdgeMaskEngine) WaterLevel() TerrainLevel {
	return e.water
}

// AdjustToWaterLevel сдвигает уровень на одну ступень к уровню воды
func (e *EdgeMaskEngine) AdjustToWaterLevel(level TerrainLevel) TerrainLevel {
	switch {
	case level < e.water:
		return level + 1
	case level > e.water:
		return level - 1
	default:
		return level
	}
}

// CompareRelativeToWater сообщает, лежит ли соседний уровень sample
// дальше от воды, чем level, в направлении сдвига. На уровне воды всегда false.
func (e *EdgeMaskEngine) CompareRelativeToWater(sample, level TerrainLevel) bool {
	adjusted := e.AdjustToWaterLevel(level)
	switch {
	case adjusted < level:
		return sample < level
	case adjusted > level:
		return sample > level
	default:
		return false
	}
}

// ComputeMask строит маску тайла (x,y) уровня level по восьми соседям
func (e *EdgeMaskEngine) ComputeMask(level TerrainLevel, x, y int) EdgeMask {
	if level == e.water {
		return 0
	}

	var mask EdgeMask
	for _, n := range neighbors {
		if e.CompareRelativeToWater(e.source.GetLevel(x+n.dx, y+n.dy), level) {
			mask |= n.bit
		}
	}
	return mask
}
