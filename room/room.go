// Package room implements the per-game state machine: the waiting/playing/
// finished lifecycle, the move pipeline with its clock arithmetic, the
// draw/rematch offer protocols, and disconnect/reconnect handling. One Room
// is one goroutine consuming a serial Actions channel — all of a Room's
// mutation happens inside Run's receive loop, so a Room needs no lock (only
// the Manager's room map is guarded by a mutex).
package room

import (
	"context"
	"log/slog"
	"time"

	"chessmatch-server/registry"
	"chessmatch-server/roomtimer"
	"chessmatch-server/rules"
	"chessmatch-server/storage"
	"chessmatch-server/wsutil"
)

// Status is the Room's place in its lifecycle.
type Status int

const (
	StatusWaiting Status = iota
	StatusPlaying
	StatusFinished
)

// Slot is one of the two seats at a Room.
type Slot struct {
	Session        string
	Name           string
	Send           chan []byte
	Connected      bool
	DisconnectedAt time.Time
}

// Clocks holds both players' remaining time. Enabled is false for an
// untimed ("none") time control, in which case the ms fields are unused.
type Clocks struct {
	WMs         int64
	BMs         int64
	IncrementMs int64
	LastMoveAt  int64 // unix ms; set when play starts, then on every recorded move
	Enabled     bool
}

// MoveRecord is one entry of the Room's frozen-on-finalize move log.
type MoveRecord struct {
	Ply         int
	SAN         string
	FEN         string
	TimestampMs int64
	Side        rules.Side
}

// ActionType enumerates the kinds of events a Room processes serially.
type ActionType int

const (
	ActionJoin ActionType = iota
	ActionMove
	ActionResign
	ActionDrawOffer
	ActionDrawRespond
	ActionRematchOffer
	ActionRematchRespond
	ActionDisconnect
	ActionReconnect
	ActionDisconnectTimeout
	ActionCleanup
)

// Action is a single event posted onto a Room's Actions channel: one struct
// carrying whichever fields the ActionType needs, with the rest left zero.
type Action struct {
	Type    ActionType
	Session string
	Name    string
	Send    chan []byte // new connection's send channel, for Join/Reconnect
	SAN     string
	Accept  bool
}

// Room is the central per-game entity.
type Room struct {
	Code        string
	TimeControl string
	Status      Status
	Engine      *rules.Engine
	Moves       []MoveRecord
	Clocks      Clocks
	GameID      string

	DrawOfferedBy    rules.Side // "" means no outstanding offer
	RematchOfferedBy rules.Side

	Slots [2]*Slot // index 0 = white, 1 = black

	disconnectTimers [2]*roomtimer.Timer // one per slot, armed while that slot is disconnected
	cleanupTimer     *roomtimer.Timer

	Actions chan Action
	Done    chan struct{}

	store     storage.HistoryStore
	registry  *registry.Registry
	ttlMS     int
	graceMS   int
	logger    *slog.Logger
	onCleanup func(code string)
}

func newRoom(code, timeControl string, store storage.HistoryStore, reg *registry.Registry, ttlMS, graceMS int, logger *slog.Logger, onCleanup func(string)) *Room {
	return &Room{
		Code:        code,
		TimeControl: timeControl,
		Status:      StatusWaiting,
		Engine:      rules.New(),
		Clocks:      ParseClocks(timeControl),
		Actions:     make(chan Action, 16),
		Done:        make(chan struct{}),
		store:       store,
		registry:    reg,
		ttlMS:       ttlMS,
		graceMS:     graceMS,
		logger:      logger,
		onCleanup:   onCleanup,
	}
}

// Run is the Room's event loop. It must be started as a goroutine.
func (r *Room) Run() {
	defer close(r.Done)
	for {
		a, ok := <-r.Actions
		if !ok {
			return
		}
		switch a.Type {
		case ActionJoin:
			r.handleJoin(a)
		case ActionMove:
			r.handleMove(a)
		case ActionResign:
			r.handleResign(a)
		case ActionDrawOffer:
			r.handleDrawOffer(a)
		case ActionDrawRespond:
			r.handleDrawRespond(a)
		case ActionRematchOffer:
			r.handleRematchOffer(a)
		case ActionRematchRespond:
			r.handleRematchRespond(a)
		case ActionDisconnect:
			if r.handleDisconnect(a) {
				return
			}
		case ActionReconnect:
			r.handleReconnect(a)
		case ActionDisconnectTimeout:
			r.handleDisconnectTimeout(a)
		case ActionCleanup:
			r.handleCleanup()
			return
		}
	}
}

func sideIndex(s rules.Side) int {
	if s == rules.White {
		return 0
	}
	return 1
}

func indexSide(i int) rules.Side {
	if i == 0 {
		return rules.White
	}
	return rules.Black
}

func (r *Room) slotIndexForSession(session string) (int, bool) {
	for i, s := range r.Slots {
		if s != nil && s.Session == session {
			return i, true
		}
	}
	return -1, false
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func (r *Room) sendTo(send chan []byte, msgType string, payload any) {
	wsutil.Send(send, msgType, payload)
}

func (r *Room) sendToSlot(i int, msgType string, payload any) {
	if r.Slots[i] == nil {
		return
	}
	r.sendTo(r.Slots[i].Send, msgType, payload)
}

func (r *Room) sendErrTo(send chan []byte, message string) {
	r.sendTo(send, "error", errorPayload{Message: message})
}

// cancelDisconnectTimer cancels and clears slot i's disconnect-grace timer,
// if one is armed. Safe to call when none is.
func (r *Room) cancelDisconnectTimer(i int) {
	if r.disconnectTimers[i] != nil {
		r.disconnectTimers[i].Cancel()
		r.disconnectTimers[i] = nil
	}
}

// clocksPayload is the snapshot sent immediately after a clock update (move,
// move_ack): no elapsed-time adjustment, since last_move_at was just set.
func (r *Room) clocksPayload() *ClocksPayload {
	if !r.Clocks.Enabled {
		return nil
	}
	return &ClocksPayload{W: r.Clocks.WMs, B: r.Clocks.BMs}
}

// liveClocksPayload applies the reconnect display rule: the side to move
// has elapsed time subtracted; the other side is verbatim.
func (r *Room) liveClocksPayload() *ClocksPayload {
	if !r.Clocks.Enabled {
		return nil
	}
	w, b := r.Clocks.WMs, r.Clocks.BMs
	elapsed := nowMillis() - r.Clocks.LastMoveAt
	if r.Engine.Turn() == rules.White {
		w = max64(0, w-elapsed)
	} else {
		b = max64(0, b-elapsed)
	}
	return &ClocksPayload{W: w, B: b}
}

func (r *Room) clockFor(side rules.Side) int64 {
	if side == rules.White {
		return r.Clocks.WMs
	}
	return r.Clocks.BMs
}

func (r *Room) setClock(side rules.Side, ms int64) {
	if side == rules.White {
		r.Clocks.WMs = ms
	} else {
		r.Clocks.BMs = ms
	}
}

func (r *Room) persistCreateGame(ctx context.Context) {
	if r.store == nil {
		return
	}
	meta := storage.GameMeta{
		GameType:    "multiplayer",
		TimeControl: r.TimeControl,
		StartingFEN: r.Engine.FEN(),
		White:       storage.PlayerMeta{Name: r.Slots[0].Name},
		Black:       storage.PlayerMeta{Name: r.Slots[1].Name},
	}
	id, err := r.store.CreateGame(ctx, meta)
	if err != nil {
		r.logger.Warn("create game persist failed", "err", err)
		return
	}
	r.GameID = id
}

// finalize performs the playing -> finished transition from any cause
// (checkmate, draw, resignation, timeout, abandonment, agreement). It is
// one-shot: a Room already finished never mutates status again except
// through an accepted rematch.
func (r *Room) finalize(result rules.Result, reason string) {
	if r.Status == StatusFinished {
		return
	}
	r.Status = StatusFinished
	r.DrawOfferedBy = ""
	r.cancelDisconnectTimer(0)
	r.cancelDisconnectTimer(1)
	if r.store != nil && r.GameID != "" {
		if err := r.store.FinishGame(context.Background(), r.GameID, string(result), reason); err != nil {
			r.logger.Warn("finish game persist failed", "err", err)
		}
	}
	payload := gameEndPayload{Result: result, Reason: reason}
	for i := range r.Slots {
		r.sendToSlot(i, "game_end", payload)
	}
	r.armCleanupTimer()
}

func (r *Room) armCleanupTimer() {
	ttl := time.Duration(r.ttlMS) * time.Millisecond
	r.cleanupTimer = roomtimer.Schedule(ttl, r.Done, func() {
		select {
		case r.Actions <- Action{Type: ActionCleanup}:
		case <-r.Done:
		}
	})
}

func (r *Room) handleCleanup() {
	if r.cleanupTimer != nil {
		r.cleanupTimer.Cancel()
		r.cleanupTimer = nil
	}
	for i := range r.Slots {
		if r.Slots[i] != nil {
			r.registry.ClearRoom(r.Slots[i].Session)
		}
	}
	if r.onCleanup != nil {
		r.onCleanup(r.Code)
	}
}
