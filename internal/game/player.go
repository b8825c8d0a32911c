package game

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Role is a player's side in the chase.
type Role string

const (
	RoleHunter Role = "hunter"
	RoleRunner Role = "runner"
)

// ParseRole maps anything other than "hunter" to the runner role.
func ParseRole(s string) Role {
	if Role(s) == RoleHunter {
		return RoleHunter
	}
	return RoleRunner
}

// Speed returns the movement speed for the role in units per second.
func (r Role) Speed() float64 {
	switch r {
	case RoleHunter:
		return HunterSpeed
	case RoleRunner:
		return RunnerSpeed
	default:
		return DefaultSpeed
	}
}

// Input is the latest direction state sent by a client.
type Input struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Direction returns the unit movement vector for the held keys.
// Opposing keys cancel; nothing held (or everything cancelled) gives the zero vector.
func (in Input) Direction() Vec2 {
	var dx, dy float64
	if in.Right {
		dx++
	}
	if in.Left {
		dx--
	}
	if in.Down {
		dy++
	}
	if in.Up {
		dy--
	}
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return Vec2{}
	}
	return Vec2{X: dx / norm, Y: dy / norm}
}

// Player is one connected participant.
type Player struct {
	ID     string
	Name   string
	Role   Role
	Avatar string
	Pos    Vec2
	Input  Input
	Tagged bool // runners only
}

// NewPlayer builds a player with a clipped name and a validated avatar.
func NewPlayer(id, name string, role Role, avatar string, pos Vec2) *Player {
	return &Player{
		ID:     id,
		Name:   ClipName(name),
		Role:   role,
		Avatar: NormalizeAvatar(role, avatar),
		Pos:    pos,
	}
}

// ClipName defaults an empty name and cuts it to MaxNameLength characters.
func ClipName(name string) string {
	if name == "" {
		return DefaultName
	}
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}
	return string([]rune(name)[:MaxNameLength])
}

// NormalizeAvatar pins the hunter avatar and checks runner avatars against the allow-list.
func NormalizeAvatar(role Role, avatar string) string {
	if role == RoleHunter {
		return HunterAvatar
	}
	avatar = strings.ToLower(avatar)
	for _, a := range RunnerAvatars {
		if a == avatar {
			return a
		}
	}
	return DefaultRunnerAvatar
}

// Move integrates one step of input-driven motion and clamps to the world.
func (p *Player) Move(dt float64) {
	dir := p.Input.Direction()
	speed := p.Role.Speed()
	p.Pos = ClampToWorld(Vec2{
		X: p.Pos.X + dir.X*speed*dt,
		Y: p.Pos.Y + dir.Y*speed*dt,
	}, PlayerMargin)
}
