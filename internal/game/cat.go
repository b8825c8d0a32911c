package game

import (
	"math"
	"math/rand"
	"time"
)

// CatMode is the cat's current behavior.
type CatMode string

const (
	CatDash CatMode = "dash"
	CatRest CatMode = "rest"
)

// Cat wanders the map on its own: a straight dash, then a long rest.
type Cat struct {
	Pos       Vec2
	Vel       Vec2
	Mode      CatMode
	ModeUntil time.Time
}

// NewCat places a cat at the world center in dash mode with zero velocity.
// It picks a heading at the first rest->dash switch.
func NewCat(now time.Time) Cat {
	return Cat{
		Pos:       Vec2{X: WorldSize / 2, Y: WorldSize / 2},
		Mode:      CatDash,
		ModeUntil: now.Add(CatDashDuration),
	}
}

// Update switches mode once the deadline passes and integrates motion while dashing.
func (c *Cat) Update(now time.Time, dt float64, rng *rand.Rand) {
	if !now.Before(c.ModeUntil) {
		switch c.Mode {
		case CatDash:
			c.Mode = CatRest
			c.ModeUntil = now.Add(CatRestDuration)
			c.Vel = Vec2{}
		default:
			c.Mode = CatDash
			c.ModeUntil = now.Add(CatDashDuration)
			angle := rng.Float64() * math.Pi * 2
			c.Vel = Vec2{X: math.Cos(angle) * CatSpeed, Y: math.Sin(angle) * CatSpeed}
		}
	}
	if c.Mode == CatDash {
		c.Pos = ClampToWorld(Vec2{
			X: c.Pos.X + c.Vel.X*dt,
			Y: c.Pos.Y + c.Vel.Y*dt,
		}, CatMargin)
	}
}
