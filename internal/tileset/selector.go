package tileset

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand"
	"sort"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/terrain"
)

var (
	// ErrUnknownLevel для уровня нет смещения или таблицы вариантов
	ErrUnknownLevel = errors.New("unknown terrain level")
	// ErrUnknownMask маски нет в таблице углов
	ErrUnknownMask = errors.New("unknown edge mask")
)

// TileArtID индекс региона в общем атласе тайлов
type TileArtID uint32

// WeightedTable упорядоченная таблица "порог броска -> индекс варианта".
// Выбирается вариант с наибольшим порогом, не превышающим бросок.
type WeightedTable struct {
	keys   []uint32
	values []uint32
}

// NewWeightedTable строит таблицу. Порог 0 обязателен, иначе малые броски не покрыты.
func NewWeightedTable(entries map[uint32]uint32) (WeightedTable, error) {
	if _, ok := entries[0]; !ok {
		return WeightedTable{}, fmt.Errorf("%w: таблица вариантов без порога 0", config.ErrInvalidConfig)
	}

	keys := make([]uint32, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	values := make([]uint32, len(keys))
	for i, k := range keys {
		values[i] = entries[k]
	}
	return WeightedTable{keys: keys, values: values}, nil
}

// Pick возвращает вариант для броска draw
func (w WeightedTable) Pick(draw uint32) uint32 {
	i := sort.Search(len(w.keys), func(i int) bool { return w.keys[i] > draw }) - 1
	if i < 0 {
		i = 0
	}
	return w.values[i]
}

// Len количество вариантов
func (w WeightedTable) Len() int {
	return len(w.keys)
}

// CornerTable таблица "маска соседей -> индекс углового тайла"
type CornerTable struct {
	index   [256]uint32
	present [256]bool
	filled  [256]bool
	size    int
}

// NewCornerTable строит таблицу из карты маска -> индекс
func NewCornerTable(entries map[uint32]uint32) (*CornerTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: таблица углов пуста", config.ErrInvalidConfig)
	}

	ct := &CornerTable{}
	for mask, idx := range entries {
		if mask > 0xFF {
			return nil, fmt.Errorf("%w: маска %#x шире 8 бит", config.ErrInvalidConfig, mask)
		}
		ct.index[mask] = idx
		ct.present[mask] = true
		ct.size++
	}
	return ct, nil
}

// Lookup ищет индекс по маске
func (c *CornerTable) Lookup(mask terrain.EdgeMask) (uint32, bool) {
	return c.index[mask], c.present[mask] || c.filled[mask]
}

// FillNearest закрывает маски без записи индексом ближайшей заданной маски:
// минимум различающихся соседей, при равенстве меньшее значение маски.
// Возвращает количество дополненных масок.
func (c *CornerTable) FillNearest() int {
	n := 0
	for m := 0; m < 256; m++ {
		if c.present[m] || c.filled[m] {
			continue
		}
		best, bestDist := -1, 9
		for k := 0; k < 256; k++ {
			if !c.present[k] {
				continue
			}
			if d := bits.OnesCount8(uint8(m ^ k)); d < bestDist {
				best, bestDist = k, d
			}
		}
		c.index[m] = c.index[best]
		c.filled[m] = true
		n++
	}
	return n
}

// Filled количество масок, дополненных FillNearest
func (c *CornerTable) Filled() int {
	n := 0
	for _, f := range c.filled {
		if f {
			n++
		}
	}
	return n
}

// Len количество заполненных масок
func (c *CornerTable) Len() int {
	return c.size
}

// Missing возвращает маски, для которых нет ни записи, ни подстановки
func (c *CornerTable) Missing() []terrain.EdgeMask {
	var out []terrain.EdgeMask
	for m := 0; m < 256; m++ {
		if !c.present[m] && !c.filled[m] {
			out = append(out, terrain.EdgeMask(m))
		}
	}
	return out
}

// Selector выбирает арт тайла по уровню и маске.
// Таблицы неизменяемы после создания, поэтому Selector разделяется воркерами без блокировок.
type Selector struct {
	offsets []uint32
	weights []WeightedTable
	corners *CornerTable
}

// NewSelector проверяет таблицы для levels уровней и строит селектор
func NewSelector(cfg *config.TilesetConfig, levels int) (*Selector, error) {
	s := &Selector{
		offsets: make([]uint32, levels),
		weights: make([]WeightedTable, levels),
	}

	for level := 0; level < levels; level++ {
		offset, ok := cfg.Offsets[uint32(level)]
		if !ok {
			return nil, fmt.Errorf("%w: нет смещения атласа для уровня %d", config.ErrInvalidConfig, level)
		}
		entries, ok := cfg.Weights[uint32(level)]
		if !ok {
			return nil, fmt.Errorf("%w: нет таблицы вариантов для уровня %d", config.ErrInvalidConfig, level)
		}
		table, err := NewWeightedTable(entries)
		if err != nil {
			return nil, fmt.Errorf("уровень %d: %w", level, err)
		}
		s.offsets[level] = offset
		s.weights[level] = table
	}

	corners, err := NewCornerTable(cfg.Corners)
	if err != nil {
		return nil, err
	}
	if !cfg.StrictCorners {
		corners.FillNearest()
	}
	s.corners = corners
	return s, nil
}

// Corners таблица углов селектора
func (s *Selector) Corners() *CornerTable {
	return s.corners
}

// SelectFlatTile выбирает случайный вариант внутреннего тайла уровня.
// Бросок равномерный в [0, 1000].
func (s *Selector) SelectFlatTile(level terrain.TerrainLevel, rng *rand.Rand) (TileArtID, error) {
	if int(level) >= len(s.weights) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}
	draw := uint32(rng.Intn(config.MaxWeightDraw + 1))
	return TileArtID(s.weights[level].Pick(draw) + s.offsets[level]), nil
}

// SelectBorderTile возвращает угловой тайл для маски и уровня
func (s *Selector) SelectBorderTile(mask terrain.EdgeMask, level terrain.TerrainLevel) (TileArtID, error) {
	if int(level) >= len(s.offsets) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}
	idx, ok := s.corners.Lookup(mask)
	if !ok {
		return 0, fmt.Errorf("%w: %08b (%s)", ErrUnknownMask, uint8(mask), mask)
	}
	return TileArtID(idx + s.offsets[level]), nil
}

// MustSelectFlatTile как SelectFlatTile, но паникует при ошибке таблиц
func (s *Selector) MustSelectFlatTile(level terrain.TerrainLevel, rng *rand.Rand) TileArtID {
	id, err := s.SelectFlatTile(level, rng)
	if err != nil {
		panic(fmt.Sprintf("ошибка данных тайлсета: %v", err))
	}
	return id
}

// MustSelectBorderTile как SelectBorderTile, но паникует при ошибке таблиц.
// Таблицы собираются на этапе сборки, поэтому промах считается фатальной ошибкой данных.
func (s *Selector) MustSelectBorderTile(mask terrain.EdgeMask, level terrain.TerrainLevel) TileArtID {
	id, err := s.SelectBorderTile(mask, level)
	if err != nil {
		panic(fmt.Sprintf("ошибка данных тайлсета: %v", err))
	}
	return id
}
