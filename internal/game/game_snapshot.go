package game

import "fmt"

// PlayerSnapshot is the wire projection of a Player.
type PlayerSnapshot struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Role   Role    `json:"role"`
	Avatar string  `json:"avatar"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Tagged bool    `json:"tagged"`
}

// CatSnapshot is the wire projection of the Cat; velocity and deadline stay server-side.
type CatSnapshot struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Mode CatMode `json:"mode"`
}

// CollectibleSnapshot is the wire projection of a Collectible.
type CollectibleSnapshot struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Collected bool    `json:"collected"`
}

// Snapshot is the full room state sent to clients. It shares nothing with State,
// so it can be encoded or rendered outside the room task.
type Snapshot struct {
	Status       Status                `json:"status"`
	Winner       Winner                `json:"winner"`
	Message      string                `json:"message"`
	ClockMinutes int                   `json:"clockMinutes"`
	Players      []PlayerSnapshot      `json:"players"`
	Cat          CatSnapshot           `json:"cat"`
	Collectibles []CollectibleSnapshot `json:"collectibles"`
}

// Snapshot copies the state into its wire form. The clock is capped at midnight.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Status:       s.Status,
		Winner:       s.Winner,
		Message:      s.Message,
		ClockMinutes: min(s.ClockMinutes, EndMinutes),
		Players:      make([]PlayerSnapshot, 0, len(s.Players)),
		Cat:          CatSnapshot{X: s.Cat.Pos.X, Y: s.Cat.Pos.Y, Mode: s.Cat.Mode},
		Collectibles: make([]CollectibleSnapshot, 0, len(s.Collectibles)),
	}
	for _, p := range s.Players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:     p.ID,
			Name:   p.Name,
			Role:   p.Role,
			Avatar: p.Avatar,
			X:      p.Pos.X,
			Y:      p.Pos.Y,
			Tagged: p.Tagged,
		})
	}
	for _, c := range s.Collectibles {
		snap.Collectibles = append(snap.Collectibles, CollectibleSnapshot{
			ID:        c.ID,
			X:         c.Pos.X,
			Y:         c.Pos.Y,
			Collected: c.Collected,
		})
	}
	return snap
}

// Remaining counts uncollected items in the snapshot.
func (s Snapshot) Remaining() int {
	n := 0
	for _, c := range s.Collectibles {
		if !c.Collected {
			n++
		}
	}
	return n
}

// ClockDisplay formats the clock as HH:MM the way clients show it.
func (s Snapshot) ClockDisplay() string {
	return fmt.Sprintf("%02d:%02d", s.ClockMinutes/60, s.ClockMinutes%60)
}
