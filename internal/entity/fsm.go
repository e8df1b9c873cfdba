package entity

import (
	"math"
	"math/rand"

	"github.com/annel0/tileworld/internal/terrain"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

// TicksPerSecond частота обновления автомата
const TicksPerSecond = 60.0

// State представляет состояние конечного автомата
type State interface {
	Enter(w *Walker)
	Update(w *Walker, worldAPI WorldAPI) State
	Exit(w *Walker)
}

// WorldAPI представляет интерфейс для взаимодействия с миром
type WorldAPI interface {
	CanWalkerMoveTo(w *Walker, newPos vec.Vec2Float) bool
}

// Walker наблюдатель, блуждающий по миру. Координаты в пикселях.
type Walker struct {
	ID           string
	Position     vec.Vec2Float
	Velocity     vec.Vec2Float
	Speed        float64 // Пикселей за тик
	WanderRadius float64 // Максимальное удаление точки назначения, пикселей
	CurrentState State

	rng *rand.Rand
}

// NewWalker создаёт наблюдателя в состоянии Idle
func NewWalker(id string, pos vec.Vec2Float, speed, wanderRadius float64, seed int64) *Walker {
	w := &Walker{
		ID:           id,
		Position:     pos,
		Speed:        speed,
		WanderRadius: wanderRadius,
		rng:          rand.New(rand.NewSource(seed)),
	}
	w.SetState(NewIdleState(w))
	return w
}

// Update обновляет состояние наблюдателя
func (w *Walker) Update(worldAPI WorldAPI) {
	if w.CurrentState != nil {
		newState := w.CurrentState.Update(w, worldAPI)
		if newState != w.CurrentState {
			w.CurrentState.Exit(w)
			w.CurrentState = newState
			w.CurrentState.Enter(w)
		}
	}
}

// SetState устанавливает новое состояние наблюдателя
func (w *Walker) SetState(state State) {
	if w.CurrentState != nil {
		w.CurrentState.Exit(w)
	}

	w.CurrentState = state

	if w.CurrentState != nil {
		w.CurrentState.Enter(w)
	}
}

// MoveTo пытается переместить наблюдателя в указанную позицию
func (w *Walker) MoveTo(newPos vec.Vec2Float, worldAPI WorldAPI) bool {
	if worldAPI.CanWalkerMoveTo(w, newPos) {
		w.Position = newPos
		return true
	}
	return false
}

// === Конкретные состояния ===

// IdleState - состояние бездействия
type IdleState struct {
	TimeInState float64
	MaxIdleTime float64
}

// NewIdleState создаёт новое состояние бездействия
func NewIdleState(w *Walker) *IdleState {
	return &IdleState{
		MaxIdleTime: 1.0 + w.rng.Float64()*2.0, // 1-3 секунды
	}
}

func (s *IdleState) Enter(w *Walker) {
	s.TimeInState = 0
	w.Velocity = vec.Vec2Float{}
}

func (s *IdleState) Update(w *Walker, worldAPI WorldAPI) State {
	s.TimeInState += 1.0 / TicksPerSecond

	if s.TimeInState >= s.MaxIdleTime {
		return NewWanderState(w)
	}
	return s
}

func (s *IdleState) Exit(w *Walker) {}

// WanderState - состояние блуждания к случайной точке
type WanderState struct {
	TargetPos     vec.Vec2Float
	TimeInState   float64
	MaxWanderTime float64
}

// NewWanderState создаёт новое состояние блуждания
func NewWanderState(w *Walker) *WanderState {
	return &WanderState{
		MaxWanderTime: 5.0 + w.rng.Float64()*10.0, // 5-15 секунд
	}
}

func (s *WanderState) Enter(w *Walker) {
	s.TimeInState = 0

	// Точка назначения на расстоянии от половины до полного радиуса
	angle := w.rng.Float64() * 2 * math.Pi
	distance := w.WanderRadius * (0.5 + w.rng.Float64()*0.5)

	s.TargetPos = vec.Vec2Float{
		X: w.Position.X + distance*math.Cos(angle),
		Y: w.Position.Y + distance*math.Sin(angle),
	}
}

func (s *WanderState) Update(w *Walker, worldAPI WorldAPI) State {
	s.TimeInState += 1.0 / TicksPerSecond

	toTarget := s.TargetPos.Sub(w.Position)
	if s.TimeInState >= s.MaxWanderTime || toTarget.Length() <= w.Speed {
		return NewIdleState(w)
	}

	w.Velocity = toTarget.Normalized().Mul(w.Speed)
	if !w.MoveTo(w.Position.Add(w.Velocity), worldAPI) {
		return NewIdleState(w)
	}
	return s
}

func (s *WanderState) Exit(w *Walker) {
	w.Velocity = vec.Vec2Float{}
}

// OpenWorld мир без препятствий
type OpenWorld struct{}

func (OpenWorld) CanWalkerMoveTo(*Walker, vec.Vec2Float) bool { return true }

// TerrainWorld запрещает шаг на тайлы ниже MinLevel (вода).
// Наблюдатель, уже стоящий на непроходимом тайле, может двигаться куда угодно.
type TerrainWorld struct {
	Levels   terrain.LevelSource
	Grid     world.Grid
	MinLevel terrain.TerrainLevel
}

func (t TerrainWorld) passable(p vec.Vec2Float) bool {
	tile := t.Grid.PixelToTile(p)
	return t.Levels.GetLevel(tile.X, tile.Y) >= t.MinLevel
}

func (t TerrainWorld) CanWalkerMoveTo(w *Walker, newPos vec.Vec2Float) bool {
	if !t.passable(w.Position) {
		return true
	}
	return t.passable(newPos)
}
