package room

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"midnight-chase/internal/game"
	"midnight-chase/internal/protocol"
)

type fakeConn struct {
	sendCh chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{sendCh: make(chan []byte, 4096)}
}

func (f *fakeConn) Send(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case f.sendCh <- cp:
		return nil
	default:
		return errors.New("queue full")
	}
}

func (f *fakeConn) Close() error {
	return nil
}

type frame struct {
	Type     string        `json:"type"`
	PlayerID string        `json:"playerId"`
	RoomCode string        `json:"roomCode"`
	State    game.Snapshot `json:"state"`
	Message  string        `json:"message"`
}

// waitFrame reads frames until match accepts one or the timeout passes.
func waitFrame(t *testing.T, fc *fakeConn, match func(frame) bool) frame {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case b := <-fc.sendCh:
			var f frame
			if err := json.Unmarshal(b, &f); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			if match(f) {
				return f
			}
		case <-timeout:
			t.Fatalf("timed out waiting for frame")
			return frame{}
		}
	}
}

// fastClock advances by step on every reading, so each tick simulates step of real time.
type fastClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *fastClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func joinReq(code string, role game.Role, name string) JoinRequest {
	return JoinRequest{RoomCode: code, Role: role, Name: name}
}

// TestJoinWelcomeThenRunning covers the first join into an empty room
func TestJoinWelcomeThenRunning(t *testing.T) {
	reg := NewRegistry(Config{})
	defer reg.Close()

	fc := newFakeConn()
	res, err := reg.Join(fc, joinReq("ABC", game.RoleRunner, "Ana"))
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if res.PlayerID == "" || res.RoomCode != "ABC" {
		t.Fatalf("Unexpected join result: %+v", res)
	}

	welcome := waitFrame(t, fc, func(f frame) bool { return true })
	if welcome.Type != protocol.TypeWelcome {
		t.Fatalf("Expected welcome first, got %q", welcome.Type)
	}
	if welcome.PlayerID != res.PlayerID || welcome.RoomCode != "ABC" {
		t.Errorf("Welcome mismatch: %+v", welcome)
	}
	if len(welcome.State.Players) != 1 || welcome.State.Players[0].Name != "Ana" {
		t.Errorf("Welcome state missing player: %+v", welcome.State.Players)
	}

	waitFrame(t, fc, func(f frame) bool {
		return f.Type == protocol.TypeState && f.State.Status == game.StatusRunning
	})
}

func TestResolveIsIdempotent(t *testing.T) {
	reg := NewRegistry(Config{})
	defer reg.Close()

	a, err := reg.Resolve("ROOM")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	b, err := reg.Resolve("ROOM")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if a != b {
		t.Error("Expected the same room instance")
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", reg.Count())
	}

	snap, ok := reg.Snapshot("ROOM")
	if !ok || snap.Status != game.StatusLobby || snap.ClockMinutes != game.StartMinutes {
		t.Errorf("Expected fresh lobby room, got %+v", snap)
	}
}

func TestSecondHunterRejected(t *testing.T) {
	reg := NewRegistry(Config{})
	defer reg.Close()

	if _, err := reg.Join(newFakeConn(), joinReq("HUNT", game.RoleHunter, "Vlad")); err != nil {
		t.Fatalf("First hunter rejected: %v", err)
	}

	fc := newFakeConn()
	_, err := reg.Join(fc, joinReq("HUNT", game.RoleHunter, "Drac"))
	if !errors.Is(err, ErrRoleConflict) {
		t.Fatalf("Expected ErrRoleConflict, got %v", err)
	}
	if _, ok := reg.RoomOf(fc); ok {
		t.Error("Rejected connection must not be indexed")
	}

	rooms := reg.Rooms()
	if len(rooms) != 1 || rooms[0].Players != 1 {
		t.Errorf("Expected one room with one player, got %+v", rooms)
	}

	// A runner can still join
	if _, err := reg.Join(fc, joinReq("HUNT", game.RoleRunner, "Ana")); err != nil {
		t.Errorf("Runner join failed: %v", err)
	}
}

func TestMissingRoomCodeCreatesNothing(t *testing.T) {
	reg := NewRegistry(Config{})
	defer reg.Close()

	_, err := reg.Join(newFakeConn(), joinReq("", game.RoleRunner, "Ana"))
	if !errors.Is(err, ErrMissingRoomCode) {
		t.Fatalf("Expected ErrMissingRoomCode, got %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("Expected no rooms, got %d", reg.Count())
	}
}

func TestCapacityLimits(t *testing.T) {
	reg := NewRegistry(Config{MaxRooms: 1, MaxPlayersPerRoom: 1})
	defer reg.Close()

	if _, err := reg.Join(newFakeConn(), joinReq("ONE", game.RoleRunner, "Ana")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if _, err := reg.Join(newFakeConn(), joinReq("ONE", game.RoleRunner, "Bo")); !errors.Is(err, ErrRoomFull) {
		t.Errorf("Expected ErrRoomFull, got %v", err)
	}
	if _, err := reg.Join(newFakeConn(), joinReq("TWO", game.RoleRunner, "Cy")); !errors.Is(err, ErrServerFull) {
		t.Errorf("Expected ErrServerFull, got %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", reg.Count())
	}
}

// TestLastLeaveRemovesRoom verifies an empty room is destroyed and its code reusable
func TestLastLeaveRemovesRoom(t *testing.T) {
	reg := NewRegistry(Config{})
	defer reg.Close()

	fc := newFakeConn()
	if _, err := reg.Join(fc, joinReq("GONE", game.RoleRunner, "Ana")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	old, _ := reg.Room("GONE")
	waitFrame(t, fc, func(f frame) bool { return f.State.Status == game.StatusRunning })

	reg.Leave(fc)
	if _, ok := reg.Room("GONE"); ok {
		t.Fatal("Expected room to be removed")
	}
	if reg.Count() != 0 {
		t.Errorf("Expected no rooms, got %d", reg.Count())
	}

	fc2 := newFakeConn()
	if _, err := reg.Join(fc2, joinReq("GONE", game.RoleRunner, "Bo")); err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	fresh, _ := reg.Room("GONE")
	if fresh == old {
		t.Error("Expected a brand-new room")
	}

	welcome := waitFrame(t, fc2, func(f frame) bool { return f.Type == protocol.TypeWelcome })
	if welcome.State.Status != game.StatusLobby || welcome.State.ClockMinutes != game.StartMinutes {
		t.Errorf("Expected fresh lobby state, got %s at %d", welcome.State.Status, welcome.State.ClockMinutes)
	}
	if welcome.State.Remaining() != game.CollectibleCount {
		t.Errorf("Expected %d collectibles, got %d", game.CollectibleCount, welcome.State.Remaining())
	}
	if len(welcome.State.Players) != 1 {
		t.Errorf("Old players leaked into new room: %+v", welcome.State.Players)
	}
}

func TestLeaveBroadcastsToRemaining(t *testing.T) {
	reg := NewRegistry(Config{})
	defer reg.Close()

	fc1, fc2 := newFakeConn(), newFakeConn()
	res1, _ := reg.Join(fc1, joinReq("PAIR", game.RoleRunner, "Ana"))
	if _, err := reg.Join(fc2, joinReq("PAIR", game.RoleHunter, "Vlad")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	waitFrame(t, fc1, func(f frame) bool { return len(f.State.Players) == 2 })

	reg.Leave(fc2)
	f := waitFrame(t, fc1, func(f frame) bool { return f.Type == protocol.TypeState && len(f.State.Players) == 1 })
	if f.State.Players[0].ID != res1.PlayerID {
		t.Errorf("Wrong player left: %+v", f.State.Players)
	}
	if _, ok := reg.Room("PAIR"); !ok {
		t.Error("Room with a remaining player must survive")
	}
}

func TestInputMovesPlayer(t *testing.T) {
	reg := NewRegistry(Config{})
	defer reg.Close()

	fc := newFakeConn()
	res, err := reg.Join(fc, joinReq("MOVE", game.RoleRunner, "Ana"))
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	welcome := waitFrame(t, fc, func(f frame) bool { return f.Type == protocol.TypeWelcome })
	startX := welcome.State.Players[0].X

	reg.Input(fc, game.Input{Right: true})
	waitFrame(t, fc, func(f frame) bool {
		for _, p := range f.State.Players {
			if p.ID == res.PlayerID && p.X > startX {
				return true
			}
		}
		return false
	})
}

func TestOrphanInputIgnored(t *testing.T) {
	reg := NewRegistry(Config{})
	defer reg.Close()

	fc := newFakeConn()
	reg.Input(fc, game.Input{Up: true})
	reg.Restart(fc)
	reg.Leave(fc)

	if reg.Count() != 0 || len(fc.sendCh) != 0 {
		t.Error("Orphan connection must not create rooms or receive frames")
	}
}

// TestMidnightThenRestart runs a round to its end on a fast clock and restarts it
func TestMidnightThenRestart(t *testing.T) {
	clock := &fastClock{t: time.Now(), step: time.Minute}
	reg := NewRegistry(Config{Now: clock.Now})
	defer reg.Close()

	fc := newFakeConn()
	if _, err := reg.Join(fc, joinReq("LATE", game.RoleRunner, "Ana")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	ended := waitFrame(t, fc, func(f frame) bool { return f.State.Status == game.StatusEnded })
	if ended.State.Winner != game.WinnerTeam || ended.State.Message != game.MsgMidnight {
		t.Errorf("Expected midnight team win, got %q %q", ended.State.Winner, ended.State.Message)
	}
	if ended.State.ClockMinutes != game.EndMinutes {
		t.Errorf("Expected capped clock %d, got %d", game.EndMinutes, ended.State.ClockMinutes)
	}

	reg.Restart(fc)
	restarted := waitFrame(t, fc, func(f frame) bool { return f.State.Status == game.StatusRunning })
	if restarted.State.Winner != game.WinnerNone || restarted.State.Message != "" {
		t.Errorf("Restart kept the old outcome: %q %q", restarted.State.Winner, restarted.State.Message)
	}
}

// TestRejoinMovesConnection verifies a second join from the same connection leaves the first room
func TestRejoinMovesConnection(t *testing.T) {
	reg := NewRegistry(Config{})
	defer reg.Close()

	fc := newFakeConn()
	if _, err := reg.Join(fc, joinReq("AAA", game.RoleRunner, "Ana")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := reg.Join(fc, joinReq("BBB", game.RoleRunner, "Ana")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if _, ok := reg.Room("AAA"); ok {
		t.Error("Abandoned room should be removed")
	}
	r, ok := reg.RoomOf(fc)
	if !ok || r.Code() != "BBB" {
		t.Error("Connection should be indexed to the new room")
	}
}

// TestRejectedRejoinKeepsMembership verifies a failed join leaves the previous room untouched
func TestRejectedRejoinKeepsMembership(t *testing.T) {
	reg := NewRegistry(Config{MaxRooms: 2, MaxPlayersPerRoom: 2})
	defer reg.Close()

	if _, err := reg.Join(newFakeConn(), joinReq("BBB", game.RoleHunter, "Vlad")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	ana := newFakeConn()
	if _, err := reg.Join(ana, joinReq("AAA", game.RoleRunner, "Ana")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	tests := []struct {
		name string
		req  JoinRequest
		want error
	}{
		{"hunter conflict", joinReq("BBB", game.RoleHunter, "Ana"), ErrRoleConflict},
		{"server full", joinReq("CCC", game.RoleRunner, "Ana"), ErrServerFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Join(ana, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			r, ok := reg.RoomOf(ana)
			if !ok || r.Code() != "AAA" {
				t.Fatal("Rejected join removed the connection from its previous room")
			}
			snap, ok := reg.Snapshot("AAA")
			if !ok || len(snap.Players) != 1 || snap.Players[0].Name != "Ana" {
				t.Errorf("Previous room changed: %+v", snap.Players)
			}
			if reg.Count() != 2 {
				t.Errorf("Expected 2 rooms, got %d", reg.Count())
			}
		})
	}
}

// TestRejoinSameRoomReplacesPlayer verifies joining the current room again swaps the player
func TestRejoinSameRoomReplacesPlayer(t *testing.T) {
	reg := NewRegistry(Config{MaxPlayersPerRoom: 1})
	defer reg.Close()

	fc := newFakeConn()
	first, err := reg.Join(fc, joinReq("SOLO", game.RoleHunter, "Vlad"))
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	// Own hunter and own seat do not count against the checks
	second, err := reg.Join(fc, joinReq("SOLO", game.RoleHunter, "Drac"))
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if second.PlayerID == first.PlayerID {
		t.Error("Rejoin should create a new player")
	}

	snap, ok := reg.Snapshot("SOLO")
	if !ok || len(snap.Players) != 1 || snap.Players[0].ID != second.PlayerID {
		t.Errorf("Expected only the new player, got %+v", snap.Players)
	}
}

func TestCloseStopsRooms(t *testing.T) {
	reg := NewRegistry(Config{})

	for _, code := range []string{"R1", "R2", "R3"} {
		if _, err := reg.Join(newFakeConn(), joinReq(code, game.RoleRunner, "Ana")); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}
	reg.Close()

	if reg.Count() != 0 {
		t.Errorf("Expected no rooms after Close, got %d", reg.Count())
	}
	if _, err := reg.Join(newFakeConn(), joinReq("R4", game.RoleRunner, "Ana")); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed, got %v", err)
	}
}
