package config

// Таблицы тайлсета по умолчанию (атлас из 77 тайлов на каждый набор рельефа).
//
// Ключ маски углов записан группами NW,N,NE | W | E | SW,S,SE:
// бит выставлен, если соседний тайл "ниже" текущего относительно уровня воды.

// DefaultTilesetSize количество тайлов в одном наборе рельефа атласа
const DefaultTilesetSize uint32 = 77

// Индексы наборов рельефа в атласе
const (
	tilesetWater           uint32 = 0
	tilesetSoil            uint32 = 1
	tilesetGrassHill       uint32 = 4
	tilesetDarkerGrassHill uint32 = 5
)

// DefaultLayerRange пороги шума для 10 уровней рельефа (значения от 0 до 2)
var DefaultLayerRange = []float64{0, 0.05, 0.1, 0.6, 0.8, 1, 1.2, 1.4, 1.6, 1.8, 2}

// DefaultWaterLevel уровень рельефа, считающийся водой
const DefaultWaterLevel uint32 = 2

func grassWeights() map[uint32]uint32 {
	return map[uint32]uint32{
		0:   55,
		15:  56,
		30:  57,
		45:  58,
		50:  59,
		55:  60,
		60:  66,
		75:  67,
		90:  68,
		95:  69,
		97:  70,
		99:  71,
		100: 12, // ~90% чистая трава
	}
}

func soilWeights() map[uint32]uint32 {
	return map[uint32]uint32{
		0:   55,
		15:  56,
		30:  57,
		45:  58,
		48:  59,
		52:  66,
		67:  67,
		82:  68,
		97:  69,
		100: 70,
		104: 12,
	}
}

func waterWeights() map[uint32]uint32 {
	return map[uint32]uint32{0: 0}
}

// DefaultWeights таблицы вариантов плоских тайлов по уровням рельефа
func DefaultWeights() map[uint32]map[uint32]uint32 {
	return map[uint32]map[uint32]uint32{
		0: grassWeights(),
		1: soilWeights(),
		2: waterWeights(),
		3: soilWeights(),
		4: grassWeights(),
		5: grassWeights(),
		6: grassWeights(),
		7: grassWeights(), // темная трава использует ту же раскладку в своем наборе
		8: grassWeights(),
		9: grassWeights(),
	}
}

// DefaultOffsets смещения наборов рельефа в атласе по уровням
func DefaultOffsets() map[uint32]uint32 {
	return map[uint32]uint32{
		0: DefaultTilesetSize * tilesetGrassHill,
		1: DefaultTilesetSize * tilesetSoil,
		2: DefaultTilesetSize * tilesetWater,
		3: DefaultTilesetSize * tilesetSoil,
		4: DefaultTilesetSize * tilesetGrassHill,
		5: DefaultTilesetSize * tilesetGrassHill,
		6: DefaultTilesetSize * tilesetGrassHill,
		7: DefaultTilesetSize * tilesetDarkerGrassHill,
		8: DefaultTilesetSize * tilesetDarkerGrassHill,
		9: DefaultTilesetSize * tilesetDarkerGrassHill,
	}
}

// DefaultCorners таблица "маска соседей -> индекс углового тайла"
func DefaultCorners() map[uint32]uint32 {
	return map[uint32]uint32{
		0b111_1_0_100: 0,
		0b110_1_0_100: 0,
		0b111_1_0_000: 0,
		0b110_1_0_000: 0,
		0b011_1_0_100: 0,
		0b010_1_0_100: 0,
		0b011_1_0_000: 0,
		0b010_1_0_000: 0,

		0b111_0_0_000: 1,
		0b110_0_0_000: 1,
		0b011_0_0_000: 1,
		0b010_0_0_000: 1,

		0b111_0_1_001: 2,
		0b011_0_1_001: 2,
		0b111_0_1_000: 2,
		0b011_0_1_000: 2,
		0b110_0_1_001: 2,
		0b010_0_1_001: 2,
		0b110_0_1_000: 2,
		0b010_0_1_000: 2,

		0b111_1_1_101: 3,
		0b110_1_1_101: 3,
		0b011_1_1_101: 3,
		0b010_1_1_101: 3,
		0b111_1_1_100: 3,
		0b110_1_1_100: 3,
		0b011_1_1_100: 3,
		0b010_1_1_100: 3,
		0b111_1_1_001: 3,
		0b110_1_1_001: 3,
		0b011_1_1_001: 3,
		0b010_1_1_001: 3,
		0b111_1_1_000: 3,
		0b110_1_1_000: 3,
		0b011_1_1_000: 3,
		0b010_1_1_000: 3,

		0b111_1_0_101: 4,
		0b111_1_0_001: 4,
		0b011_1_0_101: 4,
		0b011_1_0_001: 4,

		0b111_0_0_001: 5,
		0b111_0_0_100: 6,

		0b111_0_1_101: 7,
		0b111_0_1_100: 7,
		0b110_0_1_101: 7,
		0b110_0_1_100: 7,

		0b111_0_0_101: 8,
		0b001_0_0_100: 9,

		0b100_1_0_100: 11,
		0b100_1_0_000: 11,
		0b000_1_0_100: 11,
		0b000_1_0_000: 11,

		0b000_0_0_000: 12,

		0b001_0_1_001: 13,
		0b000_0_1_001: 13,
		0b001_0_1_000: 13,
		0b000_0_1_000: 13,

		0b101_1_1_101: 14,
		0b100_1_0_101: 15,
		0b000_0_0_001: 16,
		0b000_0_0_100: 17,
		0b001_0_1_101: 18,
		0b000_0_0_101: 19,
		0b100_0_0_001: 20,

		0b100_1_0_111: 22,
		0b000_1_0_111: 22,
		0b100_1_0_110: 22,
		0b000_1_0_110: 22,
		0b100_1_0_011: 22,
		0b000_1_0_011: 22,
		0b100_1_0_010: 22,
		0b000_1_0_010: 22,

		0b000_0_0_111: 23,
		0b000_0_0_110: 23,
		0b000_0_0_011: 23,
		0b000_0_0_010: 23,

		0b001_0_1_111: 24,
		0b000_0_1_111: 24,
		0b001_0_1_011: 24,
		0b000_0_1_011: 24,
		0b001_0_1_110: 24,
		0b000_0_1_110: 24,
		0b001_0_1_010: 24,
		0b000_0_1_010: 24,

		0b101_1_1_111: 25,
		0b100_1_1_111: 25,
		0b001_1_1_111: 25,
		0b000_1_1_111: 25,
		0b101_1_1_110: 25,
		0b100_1_1_110: 25,
		0b001_1_1_110: 25,
		0b000_1_1_110: 25,
		0b101_1_1_011: 25,
		0b100_1_1_011: 25,
		0b001_1_1_011: 25,
		0b000_1_1_011: 25,
		0b101_1_1_010: 25,
		0b100_1_1_010: 25,
		0b001_1_1_010: 25,
		0b000_1_1_010: 25,

		0b101_1_0_100: 26,
		0b001_0_0_000: 27,
		0b100_0_0_000: 28,
		0b101_0_1_001: 29,
		0b101_0_0_000: 30,
		0b101_0_0_100: 31,
		0b101_0_0_001: 32,

		0b111_1_0_111: 33,
		0b011_1_0_111: 33,
		0b111_1_0_011: 33,
		0b011_1_0_011: 33,
		0b111_1_0_110: 33,
		0b011_1_0_110: 33,
		0b111_1_0_010: 33,
		0b011_1_0_010: 33,
		0b110_1_0_111: 33,
		0b010_1_0_111: 33,
		0b110_1_0_011: 33,
		0b010_1_0_011: 33,
		0b110_1_0_110: 33,
		0b010_1_0_110: 33,
		0b110_1_0_010: 33,
		0b010_1_0_010: 33,

		0b111_0_0_111: 34,

		0b111_0_1_111: 35,
		0b011_0_1_111: 35,
		0b111_0_1_011: 35,
		0b011_0_1_011: 35,
		0b110_0_1_111: 35,
		0b010_0_1_111: 35,
		0b110_0_1_011: 35,
		0b010_0_1_011: 35,
		0b111_0_1_110: 35,
		0b011_0_1_110: 35,
		0b111_0_1_010: 35,
		0b011_0_1_010: 35,
		0b110_0_1_110: 35,
		0b010_0_1_110: 35,
		0b110_0_1_010: 35,
		0b010_0_1_010: 35,

		0b111_1_1_111: 36,
		0b110_1_1_111: 36,
		0b011_1_1_111: 36,
		0b010_1_1_111: 36,
		0b111_1_1_110: 36,
		0b110_1_1_110: 36,
		0b011_1_1_110: 36,
		0b010_1_1_110: 36,
		0b111_1_1_011: 36,
		0b110_1_1_011: 36,
		0b011_1_1_011: 36,
		0b010_1_1_011: 36,
		0b111_1_1_010: 36,
		0b110_1_1_010: 36,
		0b011_1_1_010: 36,
		0b010_1_1_010: 36,

		0b101_1_0_111: 37,
		0b001_1_0_111: 37,
		0b101_1_0_011: 37,
		0b001_1_0_011: 37,

		0b001_0_0_111: 38,
		0b100_0_0_111: 39,

		0b101_0_1_111: 40,
		0b100_0_1_111: 40,
		0b101_0_1_110: 40,
		0b100_0_1_110: 40,

		0b101_0_0_111: 41,
		0b100_0_0_101: 42,
		0b001_0_0_101: 43,
		0b101_1_0_101: 48,
		0b001_0_0_001: 49,
		0b100_0_0_100: 50,
		0b101_0_1_101: 51,
		0b101_0_0_101: 52,
	}
}
