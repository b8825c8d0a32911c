package room

import "midnight-chase/internal/game"

// Conn is the outbound side of one client connection.
// Send must not block; a frame that cannot be queued is reported as an error and skipped.
type Conn interface {
	Send([]byte) error
	Close() error
}

// JoinRequest carries the already normalized fields of a join message.
type JoinRequest struct {
	RoomCode string
	Role     game.Role
	Name     string
	Avatar   string
}

// JoinResult is what the joining connection learns about itself.
type JoinResult struct {
	PlayerID string
	RoomCode string
}

// Info is returned by the API for the room list.
type Info struct {
	Code    string      `json:"code"`
	Players int         `json:"players"`
	Status  game.Status `json:"status"`
}

// Commands handled by the room task

type joinCmd struct {
	conn  Conn
	req   JoinRequest
	reply chan<- joinReply
}

type joinReply struct {
	result JoinResult
	err    error
}

// admitCmd runs the admission checks without changing the room.
type admitCmd struct {
	conn  Conn
	role  game.Role
	reply chan<- error
}

type inputCmd struct {
	conn Conn
	keys game.Input
}

type leaveCmd struct {
	conn  Conn
	reply chan<- int // players left in the room
}

type restartCmd struct {
	conn Conn
}

type snapshotCmd struct {
	reply chan<- game.Snapshot
}
