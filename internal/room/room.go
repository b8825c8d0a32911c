package room

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"midnight-chase/internal/game"
	"midnight-chase/internal/metrics"
	"midnight-chase/internal/protocol"
)

// Room is one game instance. Its state is owned by the goroutine started in run;
// everything else talks to it through the inbox.
type Room struct {
	code       string
	inbox      chan any
	quit       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
	maxPlayers int

	// owned by the run goroutine
	state    *game.State
	conns    map[Conn]string // connection -> player id
	rng      *rand.Rand
	now      func() time.Time
	ticker   *time.Ticker
	lastTick time.Time
	events   *game.EventLog
}

type roomOptions struct {
	maxPlayers int
	events     *game.EventLog
	now        func() time.Time
	seed       int64
}

func newRoom(code string, opts roomOptions) *Room {
	if opts.now == nil {
		opts.now = time.Now
	}
	rng := rand.New(rand.NewSource(opts.seed))
	return &Room{
		code:       code,
		inbox:      make(chan any, 256),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		maxPlayers: opts.maxPlayers,
		state:      game.NewState(code, opts.now(), rng),
		conns:      make(map[Conn]string),
		rng:        rng,
		now:        opts.now,
		events:     opts.events,
	}
}

// Code returns the room code.
func (r *Room) Code() string {
	return r.code
}

// Stop ends the room task and waits for it to exit. Safe to call more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
	<-r.done
}

func (r *Room) run() {
	defer close(r.done)
	defer func() {
		if r.ticker != nil {
			r.ticker.Stop()
		}
	}()

	for {
		// nil channel while no round was ever started: never fires
		var tickC <-chan time.Time
		if r.ticker != nil {
			tickC = r.ticker.C
		}

		select {
		case <-r.quit:
			return
		case cmd := <-r.inbox:
			r.handleCommand(cmd)
		case <-tickC:
			r.tick()
		}
	}
}

// post queues a command without waiting for it to be handled.
func (r *Room) post(cmd any) error {
	select {
	case r.inbox <- cmd:
		return nil
	case <-r.quit:
		return ErrRoomClosed
	}
}

func (r *Room) join(conn Conn, req JoinRequest) (JoinResult, error) {
	reply := make(chan joinReply, 1)
	if err := r.post(joinCmd{conn: conn, req: req, reply: reply}); err != nil {
		return JoinResult{}, err
	}
	select {
	case res := <-reply:
		return res.result, res.err
	case <-r.done:
		return JoinResult{}, ErrRoomClosed
	}
}

// admits reports whether conn could join as role right now.
func (r *Room) admits(conn Conn, role game.Role) error {
	reply := make(chan error, 1)
	if err := r.post(admitCmd{conn: conn, role: role, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

func (r *Room) leave(conn Conn) (int, error) {
	reply := make(chan int, 1)
	if err := r.post(leaveCmd{conn: conn, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-r.done:
		return 0, ErrRoomClosed
	}
}

// Snapshot returns the current state as clients see it.
func (r *Room) Snapshot() (game.Snapshot, error) {
	reply := make(chan game.Snapshot, 1)
	if err := r.post(snapshotCmd{reply: reply}); err != nil {
		return game.Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-r.done:
		return game.Snapshot{}, ErrRoomClosed
	}
}

func (r *Room) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case joinCmd:
		res, err := r.handleJoin(c.conn, c.req)
		c.reply <- joinReply{result: res, err: err}
	case admitCmd:
		c.reply <- r.admission(c.conn, c.role)
	case inputCmd:
		id, ok := r.conns[c.conn]
		if !ok {
			return
		}
		if p := r.state.Player(id); p != nil {
			p.Input = c.keys
		}
	case leaveCmd:
		r.handleLeave(c.conn)
		c.reply <- len(r.state.Players)
	case restartCmd:
		if _, ok := r.conns[c.conn]; !ok {
			return
		}
		r.handleRestart()
	case snapshotCmd:
		c.reply <- r.state.Snapshot()
	}
}

// admission checks the hunter and capacity rules. A player conn already owns
// here is not counted, since joining again replaces it.
func (r *Room) admission(conn Conn, role game.Role) error {
	var own *game.Player
	if id, ok := r.conns[conn]; ok {
		own = r.state.Player(id)
	}

	if role == game.RoleHunter && r.state.HasHunter() && (own == nil || own.Role != game.RoleHunter) {
		metrics.RecordAdmissionRejected("role_conflict")
		return ErrRoleConflict
	}
	count := len(r.state.Players)
	if own != nil {
		count--
	}
	if r.maxPlayers > 0 && count >= r.maxPlayers {
		metrics.RecordAdmissionRejected("room_full")
		return ErrRoomFull
	}
	return nil
}

func (r *Room) handleJoin(conn Conn, req JoinRequest) (JoinResult, error) {
	if err := r.admission(conn, req.Role); err != nil {
		return JoinResult{}, err
	}
	r.removePlayer(conn)

	id := newPlayerID()
	p := game.NewPlayer(id, req.Name, req.Role, req.Avatar, game.RandomCellPos(r.rng))
	r.state.AddPlayer(p)
	r.conns[conn] = id
	metrics.PlayerJoined()

	log.Printf("🏃 %s joined room %s as %s (%d players)", p.Name, r.code, p.Role, len(r.state.Players))
	r.events.EmitSimple(game.EventTypePlayerJoin, r.code, game.PlayerJoinPayload{
		PlayerID: id,
		Name:     p.Name,
		Role:     p.Role,
		SpawnX:   p.Pos.X,
		SpawnY:   p.Pos.Y,
	})

	welcome := protocol.MustEncode(protocol.NewWelcome(id, r.code, r.state.Snapshot()))
	r.sendTo(conn, welcome)
	r.broadcastState()
	r.ensureRunning()

	return JoinResult{PlayerID: id, RoomCode: r.code}, nil
}

func (r *Room) handleLeave(conn Conn) {
	if r.removePlayer(conn) && len(r.conns) > 0 {
		r.broadcastState()
	}
}

// removePlayer drops conn and its player; false if conn had none here.
func (r *Room) removePlayer(conn Conn) bool {
	id, ok := r.conns[conn]
	if !ok {
		return false
	}
	delete(r.conns, conn)
	if !r.state.RemovePlayer(id) {
		return false
	}
	metrics.PlayerLeft()

	log.Printf("👋 Player %s left room %s (%d remaining)", id, r.code, len(r.state.Players))
	r.events.EmitSimple(game.EventTypePlayerLeave, r.code, game.PlayerLeavePayload{
		PlayerID:  id,
		Remaining: len(r.state.Players),
	})
	return true
}

// ensureRunning starts the first round and the tick engine. No-op once ticking.
func (r *Room) ensureRunning() {
	if r.ticker != nil {
		return
	}
	r.startRound()
	r.ticker = time.NewTicker(game.TickInterval)
}

func (r *Room) handleRestart() {
	if r.state.Status != game.StatusEnded {
		return
	}
	r.startRound()
	r.broadcastState()
}

func (r *Room) startRound() {
	now := r.now()
	r.state.StartRound(now, r.rng)
	r.lastTick = now
	metrics.RecordRoundStart()
	log.Printf("🌙 Round started in room %s", r.code)
	r.events.EmitSimple(game.EventTypeRoundStart, r.code, nil)
}

func (r *Room) tick() {
	start := time.Now()

	now := r.now()
	dt := now.Sub(r.lastTick).Seconds()
	r.lastTick = now

	res := game.Step(r.state, dt, now, r.rng)
	r.record(res)
	r.broadcastState()

	metrics.RecordTick(time.Since(start))
}

// record forwards what happened in one step to the metrics and the audit log.
func (r *Room) record(res game.StepResult) {
	if len(res.Pickups) > 0 {
		metrics.RecordPickups(len(res.Pickups))
		for _, pk := range res.Pickups {
			r.events.EmitSimple(game.EventTypePickup, r.code, pk)
		}
	}
	if len(res.Tags) > 0 {
		metrics.RecordTags(len(res.Tags))
		for _, tg := range res.Tags {
			r.events.EmitSimple(game.EventTypeTag, r.code, tg)
		}
	}
	if res.Ended {
		metrics.RecordRoundEnd(string(r.state.Winner))
		log.Printf("🏁 Room %s: %s wins (%s)", r.code, r.state.Winner, r.state.Message)
		r.events.EmitSimple(game.EventTypeRoundEnd, r.code, game.RoundEndPayload{
			Winner:       r.state.Winner,
			Message:      r.state.Message,
			ClockMinutes: r.state.ClockMinutes,
		})
	}
}

func (r *Room) broadcastState() {
	b, err := protocol.Encode(protocol.NewState(r.state.Snapshot()))
	if err != nil {
		log.Printf("⚠️ Room %s: encode state: %v", r.code, err)
		return
	}
	for c := range r.conns {
		r.sendTo(c, b)
	}
}

// sendTo is fire-and-forget: a connection that cannot take the frame is skipped.
func (r *Room) sendTo(c Conn, b []byte) {
	if err := c.Send(b); err != nil {
		metrics.IncrementWSSkipped()
		return
	}
	metrics.IncrementWSMessages()
}

func newPlayerID() string {
	return "p_" + uuid.NewString()[:8]
}
