package entity

import (
	"testing"

	"github.com/annel0/tileworld/internal/terrain"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockedWorld struct{}

func (blockedWorld) CanWalkerMoveTo(*Walker, vec.Vec2Float) bool { return false }

// halfPlane уровни: x < 0 вода (1), иначе суша (3)
type halfPlane struct{}

func (halfPlane) GetLevel(x, y int) terrain.TerrainLevel {
	if x < 0 {
		return 1
	}
	return 3
}

func ticksUntilWander(t *testing.T, w *Walker, worldAPI WorldAPI) int {
	t.Helper()
	for i := 1; i <= int(4*TicksPerSecond); i++ {
		w.Update(worldAPI)
		if _, ok := w.CurrentState.(*WanderState); ok {
			return i
		}
	}
	t.Fatal("наблюдатель не перешел в Wander")
	return 0
}

func TestIdleSwitchesToWander(t *testing.T) {
	w := NewWalker("v", vec.Vec2Float{}, 4, 256, 1)
	idle, ok := w.CurrentState.(*IdleState)
	require.True(t, ok)

	ticks := ticksUntilWander(t, w, OpenWorld{})
	assert.InDelta(t, idle.MaxIdleTime*TicksPerSecond, float64(ticks), 1.5)
}

func TestWanderMovesTowardsTarget(t *testing.T) {
	w := NewWalker("v", vec.Vec2Float{X: 100, Y: 100}, 4, 256, 2)
	ticksUntilWander(t, w, OpenWorld{})

	wander := w.CurrentState.(*WanderState)
	dist := wander.TargetPos.DistanceTo(w.Position)
	assert.GreaterOrEqual(t, dist, 128.0-4)
	assert.LessOrEqual(t, dist, 256.0)

	before := w.Position.DistanceTo(wander.TargetPos)
	w.Update(OpenWorld{})
	after := w.Position.DistanceTo(wander.TargetPos)
	assert.InDelta(t, before-4, after, 1e-9)
	assert.InDelta(t, 4.0, w.Velocity.Length(), 1e-9)
}

func TestWanderReachesTargetAndIdles(t *testing.T) {
	w := NewWalker("v", vec.Vec2Float{}, 4, 64, 3)
	ticksUntilWander(t, w, OpenWorld{})

	for i := 0; i < 100; i++ {
		w.Update(OpenWorld{})
		if _, ok := w.CurrentState.(*IdleState); ok {
			break
		}
	}
	_, ok := w.CurrentState.(*IdleState)
	assert.True(t, ok)
	assert.Equal(t, vec.Vec2Float{}, w.Velocity)
}

func TestBlockedWalkerStaysInPlace(t *testing.T) {
	start := vec.Vec2Float{X: 10, Y: -10}
	w := NewWalker("v", start, 4, 256, 4)
	ticksUntilWander(t, w, blockedWorld{})

	w.Update(blockedWorld{})
	assert.Equal(t, start, w.Position)
	_, ok := w.CurrentState.(*IdleState)
	assert.True(t, ok)
}

func TestSameSeedSamePath(t *testing.T) {
	a := NewWalker("a", vec.Vec2Float{}, 4, 256, 99)
	b := NewWalker("b", vec.Vec2Float{}, 4, 256, 99)
	for i := 0; i < 600; i++ {
		a.Update(OpenWorld{})
		b.Update(OpenWorld{})
	}
	assert.Equal(t, a.Position, b.Position)
}

func TestTerrainWorldBlocksWater(t *testing.T) {
	tw := TerrainWorld{
		Levels:   halfPlane{},
		Grid:     world.Grid{ChunkSize: vec.Vec2{X: 8, Y: 8}, TilePx: 16},
		MinLevel: 3,
	}

	onLand := &Walker{Position: vec.Vec2Float{X: 2, Y: 0}}
	assert.True(t, tw.CanWalkerMoveTo(onLand, vec.Vec2Float{X: 10, Y: 0}))
	assert.False(t, tw.CanWalkerMoveTo(onLand, vec.Vec2Float{X: -1, Y: 0}))

	inWater := &Walker{Position: vec.Vec2Float{X: -20, Y: 0}}
	assert.True(t, tw.CanWalkerMoveTo(inWater, vec.Vec2Float{X: -30, Y: 0}))
}
