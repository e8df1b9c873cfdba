package world

// TileLayer определяет слой тайлов внутри чанка.
//
// 0 – LayerBase: плоский арт уровня рельефа, заполнен полностью;
// 1 – LayerBorder: переходный арт, только там, где маска соседей не пуста.

type TileLayer uint8

const (
	LayerBase TileLayer = iota
	LayerBorder

	MaxLayers // всегда последний: количество слоев
)

// Z порядок отрисовки слоя
func (l TileLayer) Z() float32 {
	return float32(l)
}

func (l TileLayer) String() string {
	switch l {
	case LayerBase:
		return "base"
	case LayerBorder:
		return "border"
	default:
		return "unknown"
	}
}
