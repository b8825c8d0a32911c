package game

import "time"

const (
	WorldSize = 960.0
	GridSize  = 12
	CellSize  = WorldSize / GridSize

	StartMinutes = 20 * 60 // 20:00
	EndMinutes   = 24 * 60 // midnight

	TickInterval = 50 * time.Millisecond

	HunterSpeed  = 180.0 // units/s
	RunnerSpeed  = 160.0
	DefaultSpeed = 150.0 // any role without an entry above
	CatSpeed     = 240.0

	CatDashDuration = 12 * time.Second
	CatRestDuration = 60 * time.Second

	PlayerMargin = 10.0 // player collision radius, keeps bodies inside the world
	CatMargin    = 12.0

	PickupRadius = 18.0
	TagRadius    = 22.0

	CollectibleCount = 10

	MaxNameLength     = 20
	MaxRoomCodeLength = 6
	DefaultName       = "Player"
)

// Avatars a runner may pick; the hunter always wears HunterAvatar.
var RunnerAvatars = []string{"aleena", "lorenzo", "lily"}

const (
	DefaultRunnerAvatar = "aleena"
	HunterAvatar        = "vampanchino"
)
