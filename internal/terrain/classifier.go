package terrain

import (
	"sort"

	"github.com/annel0/tileworld/internal/config"
)

// LayerClassifier переводит непрерывное значение шума в уровень рельефа
// по возрастающей таблице порогов.
type LayerClassifier struct {
	ranges []float64
}

// NewLayerClassifier создает классификатор. Таблица должна строго возрастать,
// иначе возвращается ошибка, обернутая в config.ErrInvalidConfig.
func NewLayerClassifier(ranges []float64) (*LayerClassifier, error) {
	if err := config.ValidateLayerRange(ranges); err != nil {
		return nil, err
	}
	return &LayerClassifier{ranges: append([]float64(nil), ranges...)}, nil
}

// Classify возвращает i, для которого ranges[i] <= v < ranges[i+1].
// Значения за последним порогом попадают в последний уровень,
// значения ниже первого порога в уровень 0.
func (c *LayerClassifier) Classify(v float64) TerrainLevel {
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i] > v }) - 1

	if i < 0 {
		i = 0
	}
	if last := len(c.ranges) - 2; i > last {
		i = last
	}
	return TerrainLevel(i)
}

// Levels количество уровней рельефа
func (c *LayerClassifier) Levels() int {
	return len(c.ranges) - 1
}
