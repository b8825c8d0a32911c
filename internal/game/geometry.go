package game

import (
	"math"
	"math/rand"
)

// Vec2 is a point or direction in world units.
type Vec2 struct {
	X, Y float64
}

// Clamp limits v to [min, max].
func Clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

// Dist is the Euclidean distance between two points.
func Dist(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// RandomCellPos picks a uniformly random grid cell and returns its center.
func RandomCellPos(rng *rand.Rand) Vec2 {
	gx := rng.Intn(GridSize)
	gy := rng.Intn(GridSize)
	return Vec2{
		X: float64(gx)*CellSize + CellSize/2,
		Y: float64(gy)*CellSize + CellSize/2,
	}
}

// ClampToWorld keeps p at least margin away from every world edge.
func ClampToWorld(p Vec2, margin float64) Vec2 {
	return Vec2{
		X: Clamp(p.X, margin, WorldSize-margin),
		Y: Clamp(p.Y, margin, WorldSize-margin),
	}
}
