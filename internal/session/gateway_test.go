package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"midnight-chase/internal/game"
	"midnight-chase/internal/protocol"
	"midnight-chase/internal/room"
)

type recordingConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), b...))
	return nil
}

func (c *recordingConn) Close() error { return nil }

type reply struct {
	Type     string        `json:"type"`
	PlayerID string        `json:"playerId"`
	RoomCode string        `json:"roomCode"`
	Message  string        `json:"message"`
	State    game.Snapshot `json:"state"`
}

func (c *recordingConn) replies(t *testing.T) []reply {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]reply, 0, len(c.frames))
	for _, b := range c.frames {
		var r reply
		if err := json.Unmarshal(b, &r); err != nil {
			t.Fatalf("decode frame %s: %v", b, err)
		}
		out = append(out, r)
	}
	return out
}

func newGateway(t *testing.T) (*Gateway, *room.Registry) {
	reg := room.NewRegistry(room.Config{})
	t.Cleanup(reg.Close)
	return NewGateway(reg), reg
}

func TestHandleErrorsReplyToSender(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bad json", `{oops`, MsgBadJSON},
		{"unknown type", `{"type":"dance"}`, MsgUnknownType},
		{"number frame", `5`, MsgUnknownType},
		{"array frame", `[]`, MsgUnknownType},
		{"empty room code", `{"type":"join","roomCode":"","name":"Ana"}`, MsgMissingRoomCode},
		{"missing room code", `{"type":"join","name":"Ana"}`, MsgMissingRoomCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, reg := newGateway(t)
			conn := &recordingConn{}

			gw.Handle(conn, []byte(tt.raw))

			replies := conn.replies(t)
			if len(replies) != 1 {
				t.Fatalf("Expected one reply, got %d", len(replies))
			}
			if replies[0].Type != protocol.TypeError || replies[0].Message != tt.want {
				t.Errorf("Expected error %q, got %+v", tt.want, replies[0])
			}
			if reg.Count() != 0 {
				t.Errorf("Expected no rooms, got %d", reg.Count())
			}
		})
	}
}

func TestJoinNormalizesRoomCode(t *testing.T) {
	gw, reg := newGateway(t)
	conn := &recordingConn{}

	gw.Handle(conn, []byte(`{"type":"join","roomCode":"abcdefgh","role":"hunter","name":"Vlad","avatar":"lily"}`))

	if _, ok := reg.Room("ABCDEF"); !ok {
		t.Fatal("Expected room ABCDEF")
	}
	welcome := conn.replies(t)[0]
	if welcome.Type != protocol.TypeWelcome || welcome.RoomCode != "ABCDEF" {
		t.Fatalf("Unexpected first reply: %+v", welcome)
	}
	p := welcome.State.Players[0]
	if p.Role != game.RoleHunter || p.Avatar != game.HunterAvatar {
		t.Errorf("Expected pinned hunter avatar, got %+v", p)
	}
}

func TestSecondHunterGetsErrorAndStaysOpen(t *testing.T) {
	gw, reg := newGateway(t)
	first, second := &recordingConn{}, &recordingConn{}

	gw.Handle(first, []byte(`{"type":"join","roomCode":"den","role":"hunter"}`))
	gw.Handle(second, []byte(`{"type":"join","roomCode":"DEN","role":"hunter"}`))

	replies := second.replies(t)
	if len(replies) != 1 || replies[0].Message != MsgRoleConflict {
		t.Fatalf("Expected role conflict reply, got %+v", replies)
	}

	// same connection can still join as a runner
	gw.Handle(second, []byte(`{"type":"join","roomCode":"DEN","role":"runner","name":"Ana"}`))
	if r, ok := reg.RoomOf(second); !ok || r.Code() != "DEN" {
		t.Error("Expected second connection to be admitted as runner")
	}
}

func TestInputAndCloseLifecycle(t *testing.T) {
	gw, reg := newGateway(t)
	conn := &recordingConn{}

	// orphan input is silent
	gw.Handle(conn, []byte(`{"type":"input","keys":{"up":true}}`))
	if len(conn.replies(t)) != 0 {
		t.Fatal("Orphan input must not be answered")
	}

	gw.Handle(conn, []byte(`{"type":"join","roomCode":"RUN","name":"Ana"}`))
	gw.Handle(conn, []byte(`{"type":"input","keys":{"left":true,"up":"yes"}}`))

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, _ := reg.Snapshot("RUN")
		if snap.Status == game.StatusRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Room never started")
		}
		time.Sleep(10 * time.Millisecond)
	}

	gw.Close(conn)
	if _, ok := reg.Room("RUN"); ok {
		t.Error("Expected room removed after last close")
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("decode: %w", protocol.ErrBadJSON), MsgBadJSON},
		{protocol.ErrUnknownType, MsgUnknownType},
		{room.ErrMissingRoomCode, MsgMissingRoomCode},
		{room.ErrRoleConflict, MsgRoleConflict},
		{room.ErrRoomFull, MsgRoomFull},
		{room.ErrServerFull, MsgServerFull},
		{room.ErrRoomClosed, MsgUnavailable},
		{errors.New("anything else"), MsgUnavailable},
	}
	for _, tt := range tests {
		if got := ErrorText(tt.err); got != tt.want {
			t.Errorf("ErrorText(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
