// Package session dispatches decoded client messages to the room registry and
// turns failures into error replies for the sender.
package session

import (
	"errors"
	"log"

	"midnight-chase/internal/game"
	"midnight-chase/internal/metrics"
	"midnight-chase/internal/protocol"
	"midnight-chase/internal/room"
)

// Client-facing error texts
const (
	MsgBadJSON         = "Bad JSON"
	MsgUnknownType     = "Unknown message type"
	MsgMissingRoomCode = "Missing room code"
	MsgRoleConflict    = "Room already has a hunter"
	MsgRoomFull        = "Room is full"
	MsgServerFull      = "Server is full"
	MsgUnavailable     = "Server is shutting down"
)

// Gateway is the per-process entry point for inbound frames.
type Gateway struct {
	rooms *room.Registry
}

func NewGateway(rooms *room.Registry) *Gateway {
	return &Gateway{rooms: rooms}
}

// Handle processes one inbound frame from conn. Errors are answered on conn;
// the connection is never closed here.
func (g *Gateway) Handle(conn room.Conn, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		metrics.RecordMessageIn("invalid")
		g.reply(conn, err)
		return
	}

	switch m := msg.(type) {
	case protocol.Join:
		metrics.RecordMessageIn(protocol.TypeJoin)
		_, err := g.rooms.Join(conn, room.JoinRequest{
			RoomCode: protocol.NormalizeRoomCode(m.RoomCode),
			Role:     game.ParseRole(m.Role),
			Name:     m.Name,
			Avatar:   m.Avatar,
		})
		if err != nil {
			g.reply(conn, err)
		}
	case protocol.Input:
		metrics.RecordMessageIn(protocol.TypeInput)
		g.rooms.Input(conn, m.Keys)
	case protocol.Restart:
		metrics.RecordMessageIn(protocol.TypeRestart)
		g.rooms.Restart(conn)
	}
}

// Close drops whatever player conn owned.
func (g *Gateway) Close(conn room.Conn) {
	g.rooms.Leave(conn)
}

func (g *Gateway) reply(conn room.Conn, err error) {
	if err := conn.Send(protocol.MustEncode(protocol.NewError(ErrorText(err)))); err != nil {
		log.Printf("⚠️ Could not deliver error reply: %v", err)
	}
}

// ErrorText maps an error to the message shown to the client.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, protocol.ErrBadJSON):
		return MsgBadJSON
	case errors.Is(err, protocol.ErrUnknownType):
		return MsgUnknownType
	case errors.Is(err, room.ErrMissingRoomCode):
		return MsgMissingRoomCode
	case errors.Is(err, room.ErrRoleConflict):
		return MsgRoleConflict
	case errors.Is(err, room.ErrRoomFull):
		return MsgRoomFull
	case errors.Is(err, room.ErrServerFull):
		return MsgServerFull
	default:
		return MsgUnavailable
	}
}
