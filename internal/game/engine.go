package game

import (
	"math/rand"
	"time"
)

// Pickup records a runner collecting an item during a step.
type Pickup struct {
	PlayerID      string `json:"playerId"`
	CollectibleID string `json:"collectibleId"`
}

// Tag records a hunter catching a runner during a step.
type Tag struct {
	HunterID string `json:"hunterId"`
	RunnerID string `json:"runnerId"`
}

// StepResult describes what happened in one step, for logging and metrics.
type StepResult struct {
	Simulated bool // false when the room was not running
	Pickups   []Pickup
	Tags      []Tag
	Ended     bool // the round ended during this step
}

// Step advances a running room by dt seconds of real time.
// now is the wall-clock instant of the tick and drives the cat's mode deadlines.
// Rooms in lobby or ended are left untouched.
func Step(s *State, dt float64, now time.Time, rng *rand.Rand) StepResult {
	var res StepResult
	if s.Status != StatusRunning {
		return res
	}
	res.Simulated = true

	s.advanceClock(dt)

	for _, p := range s.Players {
		p.Move(dt)
	}

	s.Cat.Update(now, dt, rng)

	res.Pickups = s.resolvePickups()
	res.Tags = s.resolveTags()

	res.Ended = s.checkWin()
	return res
}

// advanceClock turns accumulated real seconds into clock minutes 1:1,
// keeping the fractional remainder for the next step.
func (s *State) advanceClock(dt float64) {
	s.minuteAcc += dt
	if s.minuteAcc >= 1 {
		whole := int(s.minuteAcc)
		s.ClockMinutes += whole
		s.minuteAcc -= float64(whole)
	}
}

func (s *State) resolvePickups() []Pickup {
	var picked []Pickup
	for _, p := range s.Players {
		if p.Role != RoleRunner || p.Tagged {
			continue
		}
		for i := range s.Collectibles {
			c := &s.Collectibles[i]
			if c.Collected {
				continue
			}
			if Dist(p.Pos, c.Pos) < PickupRadius {
				c.Collected = true
				picked = append(picked, Pickup{PlayerID: p.ID, CollectibleID: c.ID})
			}
		}
	}
	return picked
}

func (s *State) resolveTags() []Tag {
	var tags []Tag
	for _, h := range s.Players {
		if h.Role != RoleHunter {
			continue
		}
		for _, r := range s.Players {
			if r.Role != RoleRunner || r.Tagged {
				continue
			}
			if Dist(h.Pos, r.Pos) < TagRadius {
				r.Tagged = true
				tags = append(tags, Tag{HunterID: h.ID, RunnerID: r.ID})
			}
		}
	}
	return tags
}

// checkWin applies the first terminal condition that holds, in precedence order:
// all runners tagged, midnight, all items collected.
func (s *State) checkWin() bool {
	runners, tagged := 0, 0
	for _, p := range s.Players {
		if p.Role != RoleRunner {
			continue
		}
		runners++
		if p.Tagged {
			tagged++
		}
	}

	switch {
	case runners > 0 && tagged == runners:
		s.End(WinnerHunter, MsgAllTagged)
	case s.ClockMinutes >= EndMinutes:
		s.End(WinnerTeam, MsgMidnight)
	case s.Remaining() == 0:
		s.End(WinnerTeam, MsgAllCollected)
	default:
		return false
	}
	return true
}
