package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// Internal truth: authoritative room state, mutated only by the owning room task.

// Status is the round lifecycle.
type Status string

const (
	StatusLobby   Status = "lobby"
	StatusRunning Status = "running"
	StatusEnded   Status = "ended"
)

// Winner records which side won the round; WinnerNone encodes as JSON null.
type Winner string

const (
	WinnerNone   Winner = ""
	WinnerTeam   Winner = "team"
	WinnerHunter Winner = "hunter"
)

func (w Winner) MarshalJSON() ([]byte, error) {
	if w == WinnerNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(w))
}

func (w *Winner) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*w = WinnerNone
		return nil
	}
	*w = Winner(*s)
	return nil
}

const (
	MsgAllTagged    = "All runners tagged"
	MsgMidnight     = "Reached midnight"
	MsgAllCollected = "All collectibles gathered"
)

// Collectible is an item runners pick up. It is flagged, never removed.
type Collectible struct {
	ID        string
	Pos       Vec2
	Collected bool
}

// SpawnCollectibles places count items on random cell centers.
func SpawnCollectibles(count int, rng *rand.Rand) []Collectible {
	out := make([]Collectible, count)
	for i := range out {
		out[i] = Collectible{ID: fmt.Sprintf("c_%d", i), Pos: RandomCellPos(rng)}
	}
	return out
}

// State is everything one room simulates.
type State struct {
	Code         string
	Players      []*Player // join order
	Cat          Cat
	Collectibles []Collectible
	ClockMinutes int
	Status       Status
	Winner       Winner
	Message      string

	minuteAcc float64 // real seconds not yet turned into clock minutes
}

// NewState returns a lobby room with a fresh cat and collectibles.
func NewState(code string, now time.Time, rng *rand.Rand) *State {
	return &State{
		Code:         code,
		Cat:          NewCat(now),
		Collectibles: SpawnCollectibles(CollectibleCount, rng),
		ClockMinutes: StartMinutes,
		Status:       StatusLobby,
	}
}

// StartRound resets the round: clock, items, cat, outcome and tags.
// Players keep their positions.
func (s *State) StartRound(now time.Time, rng *rand.Rand) {
	s.Status = StatusRunning
	s.ClockMinutes = StartMinutes
	s.minuteAcc = 0
	s.Winner = WinnerNone
	s.Message = ""
	s.Collectibles = SpawnCollectibles(CollectibleCount, rng)
	s.Cat = NewCat(now)
	for _, p := range s.Players {
		p.Tagged = false
	}
}

// End freezes the outcome of the round.
func (s *State) End(winner Winner, message string) {
	s.Status = StatusEnded
	s.Winner = winner
	s.Message = message
}

// Player returns the player with the given id, or nil.
func (s *State) Player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddPlayer appends p in join order.
func (s *State) AddPlayer(p *Player) {
	s.Players = append(s.Players, p)
}

// RemovePlayer deletes the player and reports whether it existed.
func (s *State) RemovePlayer(id string) bool {
	for i, p := range s.Players {
		if p.ID == id {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			return true
		}
	}
	return false
}

// HasHunter reports whether a hunter is already in the room.
func (s *State) HasHunter() bool {
	for _, p := range s.Players {
		if p.Role == RoleHunter {
			return true
		}
	}
	return false
}

// Remaining counts uncollected items.
func (s *State) Remaining() int {
	n := 0
	for _, c := range s.Collectibles {
		if !c.Collected {
			n++
		}
	}
	return n
}
