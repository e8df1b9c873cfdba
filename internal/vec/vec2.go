package vec

import (
	"fmt"
	"math"
)

// Vec2 представляет целочисленные 2D координаты (тайлы, чанки, локальные позиции)
type Vec2 struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul покомпонентно умножает векторы
func (v Vec2) Mul(other Vec2) Vec2 {
	return Vec2{X: v.X * other.X, Y: v.Y * other.Y}
}

// ToChunkCoords преобразует глобальные координаты тайла в координаты чанка.
// Деление с округлением вниз: тайл (-1,-1) при размере 8 попадает в чанк (-1,-1).
func (v Vec2) ToChunkCoords(chunkSize Vec2) Vec2 {
	return Vec2{X: FloorDiv(v.X, chunkSize.X), Y: FloorDiv(v.Y, chunkSize.Y)}
}

// LocalInChunk возвращает локальные координаты внутри чанка (всегда неотрицательные)
func (v Vec2) LocalInChunk(chunkSize Vec2) Vec2 {
	return Vec2{X: FloorMod(v.X, chunkSize.X), Y: FloorMod(v.Y, chunkSize.Y)}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	return math.Sqrt(float64(v.DistanceSquared(other)))
}

// DistanceSquared вычисляет квадрат расстояния без извлечения корня
func (v Vec2) DistanceSquared(other Vec2) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return dx*dx + dy*dy
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Y)
}

// FloorDiv делит с округлением к минус бесконечности
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает евклидов остаток, согласованный с FloorDiv
func FloorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
