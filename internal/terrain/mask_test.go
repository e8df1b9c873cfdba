package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// gridLevels источник уровней: явные значения, остальное fill
type gridLevels struct {
	fill   TerrainLevel
	levels map[[2]int]TerrainLevel
}

func (g *gridLevels) GetLevel(x, y int) TerrainLevel {
	if l, ok := g.levels[[2]int{x, y}]; ok {
		return l
	}
	return g.fill
}

func TestAdjustToWaterLevel(t *testing.T) {
	e := NewEdgeMaskEngine(nil, 2)

	assert.Equal(t, TerrainLevel(1), e.AdjustToWaterLevel(0))
	assert.Equal(t, TerrainLevel(2), e.AdjustToWaterLevel(1))
	assert.Equal(t, TerrainLevel(2), e.AdjustToWaterLevel(2))
	assert.Equal(t, TerrainLevel(2), e.AdjustToWaterLevel(3))
	assert.Equal(t, TerrainLevel(4), e.AdjustToWaterLevel(5))
}

func TestCompareRelativeToWater(t *testing.T) {
	e := NewEdgeMaskEngine(nil, 2)

	// выше воды: сосед ниже
	assert.True(t, e.CompareRelativeToWater(3, 4))
	assert.False(t, e.CompareRelativeToWater(4, 4))
	assert.False(t, e.CompareRelativeToWater(5, 4))

	// ниже воды: сосед выше
	assert.True(t, e.CompareRelativeToWater(1, 0))
	assert.False(t, e.CompareRelativeToWater(0, 0))

	// на уровне воды всегда false
	assert.False(t, e.CompareRelativeToWater(0, 2))
	assert.False(t, e.CompareRelativeToWater(5, 2))
}

func TestComputeMaskEachBit(t *testing.T) {
	const x, y = 10, -3

	tests := []struct {
		name   string
		dx, dy int
		bit    EdgeMask
		raw    uint8
	}{
		{"N", 0, 1, MaskN, 0b010_0_0_000},
		{"S", 0, -1, MaskS, 0b000_0_0_010},
		{"E", 1, 0, MaskE, 0b000_0_1_000},
		{"W", -1, 0, MaskW, 0b000_1_0_000},
		{"NW", -1, 1, MaskNW, 0b100_0_0_000},
		{"NE", 1, 1, MaskNE, 0b001_0_0_000},
		{"SW", -1, -1, MaskSW, 0b000_0_0_100},
		{"SE", 1, -1, MaskSE, 0b000_0_0_001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, EdgeMask(tt.raw), tt.bit)

			// тайл уровня 4 над водой 2, все соседи равны, один ниже
			src := &gridLevels{fill: 4, levels: map[[2]int]TerrainLevel{{x + tt.dx, y + tt.dy}: 3}}
			e := NewEdgeMaskEngine(src, 2)
			assert.Equal(t, tt.bit, e.ComputeMask(4, x, y))

			// тайл под водой: бит выставляет сосед выше
			src = &gridLevels{fill: 0, levels: map[[2]int]TerrainLevel{{x + tt.dx, y + tt.dy}: 1}}
			e = NewEdgeMaskEngine(src, 2)
			assert.Equal(t, tt.bit, e.ComputeMask(0, x, y))
		})
	}
}

func TestComputeMaskAtWaterLevel(t *testing.T) {
	src := &gridLevels{fill: 0}
	e := NewEdgeMaskEngine(src, 2)
	assert.Equal(t, EdgeMask(0), e.ComputeMask(2, 0, 0))
}

func TestComputeMaskFullRing(t *testing.T) {
	src := &gridLevels{fill: 1, levels: map[[2]int]TerrainLevel{{0, 0}: 5}}
	e := NewEdgeMaskEngine(src, 1)
	assert.Equal(t, EdgeMask(0xFF), e.ComputeMask(5, 0, 0))
	assert.Equal(t, "NW|N|NE|W|E|SW|S|SE", e.ComputeMask(5, 0, 0).String())
	assert.Equal(t, "-", EdgeMask(0).String())
}
