// Package room owns the live rooms: one goroutine per room runs the simulation
// and handles that room's commands, and the Registry maps codes and connections
// to rooms.
package room

import (
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"midnight-chase/internal/game"
	"midnight-chase/internal/metrics"
)

// Admission errors
var (
	ErrMissingRoomCode = errors.New("missing room code")
	ErrRoleConflict    = errors.New("room already has a hunter")
	ErrRoomFull        = errors.New("room is full")
	ErrServerFull      = errors.New("server is full")
	ErrRoomClosed      = errors.New("room closed")
)

// Config tunes the registry. Zero limits mean unlimited.
type Config struct {
	MaxRooms          int
	MaxPlayersPerRoom int
	Events            *game.EventLog   // optional audit log
	Now               func() time.Time // defaults to time.Now
}

// Registry holds the rooms by code plus the connection -> room index.
// Membership changes (join, leave, create, destroy) are serialised by mu.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	index map[Conn]*Room

	cfg    Config
	seeds  atomic.Int64
	closed bool
}

func NewRegistry(cfg Config) *Registry {
	reg := &Registry{
		rooms: make(map[string]*Room),
		index: make(map[Conn]*Room),
		cfg:   cfg,
	}
	reg.seeds.Store(time.Now().UnixNano())
	return reg
}

// Resolve returns the room for code, creating and starting it if absent.
// Calling it again with the same code returns the same room until it is removed.
func (reg *Registry) Resolve(code string) (*Room, error) {
	if code == "" {
		return nil, ErrMissingRoomCode
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, _, err := reg.resolveLocked(code)
	return r, err
}

func (reg *Registry) resolveLocked(code string) (*Room, bool, error) {
	if reg.closed {
		return nil, false, ErrRoomClosed
	}
	if r, ok := reg.rooms[code]; ok {
		return r, false, nil
	}
	if reg.cfg.MaxRooms > 0 && len(reg.rooms) >= reg.cfg.MaxRooms {
		metrics.RecordAdmissionRejected("server_full")
		return nil, false, ErrServerFull
	}

	r := newRoom(code, roomOptions{
		maxPlayers: reg.cfg.MaxPlayersPerRoom,
		events:     reg.cfg.Events,
		now:        reg.cfg.Now,
		seed:       reg.seeds.Add(1),
	})
	reg.rooms[code] = r
	go r.run()

	metrics.RoomOpened()
	log.Printf("🏠 Room %s created (%d rooms)", code, len(reg.rooms))
	return r, true, nil
}

// Join admits conn into the room named by req.RoomCode, creating the room if needed.
// A connection that is already in another room leaves it once the new room has
// accepted it; joining the same room again replaces its player.
// An admission error changes no room and no player.
func (reg *Registry) Join(conn Conn, req JoinRequest) (JoinResult, error) {
	if req.RoomCode == "" {
		metrics.RecordAdmissionRejected("missing_code")
		return JoinResult{}, ErrMissingRoomCode
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, created, err := reg.resolveLocked(req.RoomCode)
	if err != nil {
		log.Printf("🚫 Join to room %s rejected: %v", req.RoomCode, err)
		return JoinResult{}, err
	}

	// Membership only changes under mu, so the check still holds for r.join below
	if err := r.admits(conn, req.Role); err != nil {
		if created {
			reg.destroyLocked(r)
		}
		log.Printf("🚫 Join to room %s rejected: %v", req.RoomCode, err)
		return JoinResult{}, err
	}

	if prev, ok := reg.index[conn]; ok && prev != r {
		reg.leaveLocked(conn, prev)
	}

	res, err := r.join(conn, req)
	if err != nil {
		delete(reg.index, conn)
		if created {
			reg.destroyLocked(r)
		}
		return JoinResult{}, err
	}

	reg.index[conn] = r
	return res, nil
}

// Input overwrites the held directions of the player owned by conn.
// Connections without a player are ignored.
func (reg *Registry) Input(conn Conn, keys game.Input) {
	r, ok := reg.RoomOf(conn)
	if !ok {
		return
	}
	_ = r.post(inputCmd{conn: conn, keys: keys})
}

// Restart asks conn's room for a new round; rooms that have not ended ignore it.
func (reg *Registry) Restart(conn Conn) {
	r, ok := reg.RoomOf(conn)
	if !ok {
		return
	}
	_ = r.post(restartCmd{conn: conn})
}

// Leave removes conn's player. The room is stopped and removed once empty.
func (reg *Registry) Leave(conn Conn) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.index[conn]; ok {
		reg.leaveLocked(conn, r)
	}
}

func (reg *Registry) leaveLocked(conn Conn, r *Room) {
	delete(reg.index, conn)
	remaining, err := r.leave(conn)
	if err != nil || remaining > 0 {
		return
	}
	reg.destroyLocked(r)
}

func (reg *Registry) destroyLocked(r *Room) {
	if reg.rooms[r.code] != r {
		return
	}
	delete(reg.rooms, r.code)
	r.Stop()

	metrics.RoomClosed()
	log.Printf("🗑️ Room %s removed (%d rooms)", r.code, len(reg.rooms))
}

// Room returns the live room for code.
func (reg *Registry) Room(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[code]
	return r, ok
}

// RoomOf returns the room conn is currently in.
func (reg *Registry) RoomOf(conn Conn) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.index[conn]
	return r, ok
}

// Snapshot returns the client view of the room named code.
func (reg *Registry) Snapshot(code string) (game.Snapshot, bool) {
	r, ok := reg.Room(code)
	if !ok {
		return game.Snapshot{}, false
	}
	snap, err := r.Snapshot()
	if err != nil {
		return game.Snapshot{}, false
	}
	return snap, true
}

// Rooms lists the live rooms sorted by code.
func (reg *Registry) Rooms() []Info {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	out := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		snap, err := r.Snapshot()
		if err != nil {
			continue // removed meanwhile
		}
		out = append(out, Info{Code: r.code, Players: len(snap.Players), Status: snap.Status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Close stops every room. Later joins fail with ErrRoomClosed.
func (reg *Registry) Close() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.closed = true
	for _, r := range reg.rooms {
		reg.destroyLocked(r)
	}
	reg.index = make(map[Conn]*Room)
}
