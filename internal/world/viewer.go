package world

import (
	"sort"
	"sync"

	"github.com/annel0/tileworld/internal/vec"
)

// ViewerRegistry источник пиксельных позиций наблюдателей (камера, игрок)
type ViewerRegistry interface {
	ViewerPositions() []vec.Vec2Float
}

// StaticViewers фиксированный набор позиций
type StaticViewers []vec.Vec2Float

func (s StaticViewers) ViewerPositions() []vec.Vec2Float {
	return s
}

// ViewerSet изменяемый набор именованных наблюдателей.
// Позиции обновляются из любых горутин, читаются менеджером на тике.
type ViewerSet struct {
	mu      sync.RWMutex
	viewers map[string]vec.Vec2Float
}

// NewViewerSet создает пустой набор
func NewViewerSet() *ViewerSet {
	return &ViewerSet{viewers: make(map[string]vec.Vec2Float)}
}

// Set добавляет или перемещает наблюдателя
func (v *ViewerSet) Set(id string, pos vec.Vec2Float) {
	v.mu.Lock()
	v.viewers[id] = pos
	v.mu.Unlock()
}

// Remove удаляет наблюдателя
func (v *ViewerSet) Remove(id string) {
	v.mu.Lock()
	delete(v.viewers, id)
	v.mu.Unlock()
}

// Get позиция наблюдателя
func (v *ViewerSet) Get(id string) (vec.Vec2Float, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.viewers[id]
	return p, ok
}

// ViewerPositions позиции в порядке идентификаторов
func (v *ViewerSet) ViewerPositions() []vec.Vec2Float {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ids := make([]string, 0, len(v.viewers))
	for id := range v.viewers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]vec.Vec2Float, 0, len(ids))
	for _, id := range ids {
		out = append(out, v.viewers[id])
	}
	return out
}
