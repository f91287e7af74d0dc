// Package matchmaking implements the pairing queues: one FIFO queue per
// time-control tag, plus the wildcard tag "any". There is no bot fallback:
// a caller with no match simply waits in its queue until a real opponent
// arrives or it leaves.
package matchmaking

import (
	"log/slog"
	"math/rand"
	"sync"

	"chessmatch-server/registry"
	"chessmatch-server/room"
	"chessmatch-server/roomerrors"
	"chessmatch-server/wsutil"
)

// Entry is a single queued player. Alive lets the caller attach a liveness
// check (the transport layer's connection-closed flag); nil means always
// alive.
type Entry struct {
	Session string
	Name    string
	Send    chan []byte
	Alive   func() bool
}

// Matchmaker owns the per-tag queues. Every queue mutation and every
// pairing decision happens under mu, which is what makes pairing atomic:
// from the moment an opponent is popped to the moment the Room is created
// and the second player's join has been posted to it, no other matchmaker
// operation interleaves.
type Matchmaker struct {
	mu       sync.Mutex
	queues   map[string][]Entry
	tagOrder []string

	registry *registry.Registry
	manager  *room.Manager
	logger   *slog.Logger
}

// New creates an empty Matchmaker.
func New(reg *registry.Registry, mgr *room.Manager, logger *slog.Logger) *Matchmaker {
	return &Matchmaker{
		queues:   make(map[string][]Entry),
		registry: reg,
		manager:  mgr,
		logger:   logger,
	}
}

// Join runs the full pairing policy for a single call, synchronously.
// Holding mu for the whole operation, including the room creation in pair,
// is what gives pairing its atomicity: there is only one lock guarding the
// queues, and Join and Leave both take it. alive is consulted if this entry is later
// popped while still queued (nil means always alive); the transport layer
// passes its connection's closed flag.
func (m *Matchmaker) Join(session, name string, send chan []byte, tag string, alive func() bool) {
	tag, err := normalizeQueueTag(tag, m.manager.DefaultTimeControl())
	if err != nil {
		wsutil.Send(send, "error", errorPayload{Message: err.Error()})
		return
	}

	m.mu.Lock()

	if m.sessionQueued(session) {
		m.mu.Unlock()
		wsutil.Send(send, "error", errorPayload{Message: roomerrors.ErrAlreadyInQueue.Error()})
		return
	}
	if m.registry.IsSeated(session) {
		m.mu.Unlock()
		wsutil.Send(send, "error", errorPayload{Message: roomerrors.ErrAlreadyInGame.Error()})
		return
	}

	caller := Entry{Session: session, Name: name, Send: send, Alive: alive}
	opponent, effectiveTC, found := m.popOpponent(tag)
	if !found {
		m.enqueue(tag, caller)
		position := len(m.queues[tag])
		m.mu.Unlock()
		wsutil.Send(send, "queue_joined", queueJoinedPayload{TimeControl: tag, Position: position})
		return
	}
	m.pair(caller, opponent, effectiveTC)
	m.mu.Unlock()
}

// Leave removes a session from whichever queue it is in, if any, and
// notifies it directly — used both for an explicit cancel_queue message
// and as the transport layer's disconnect hook.
func (m *Matchmaker) Leave(session string) {
	m.mu.Lock()
	var removed *Entry
	for tag, q := range m.queues {
		for i, e := range q {
			if e.Session == session {
				m.queues[tag] = append(q[:i:i], q[i+1:]...)
				ee := e
				removed = &ee
				break
			}
		}
		if removed != nil {
			break
		}
	}
	m.mu.Unlock()

	if removed != nil {
		wsutil.Send(removed.Send, "queue_left", struct{}{})
	}
}

func (m *Matchmaker) sessionQueued(session string) bool {
	for _, q := range m.queues {
		for _, e := range q {
			if e.Session == session {
				return true
			}
		}
	}
	return false
}

func (m *Matchmaker) enqueue(tag string, e Entry) {
	if _, ok := m.queues[tag]; !ok {
		m.tagOrder = append(m.tagOrder, tag)
	}
	m.queues[tag] = append(m.queues[tag], e)
}

// popFront pops the queue's head, discarding any dead entries it finds
// along the way: liveness is re-checked on every pop, and a dead opponent
// causes the search to continue rather than fail outright.
func (m *Matchmaker) popFront(tag string) (Entry, bool) {
	q := m.queues[tag]
	for len(q) > 0 {
		e := q[0]
		q = q[1:]
		m.queues[tag] = q
		if e.Alive == nil || e.Alive() {
			return e, true
		}
	}
	return Entry{}, false
}

// popOpponent implements the opponent-selection step of the pairing
// policy: wildcard scan order vs. specific-tag-then-wildcard fallback.
func (m *Matchmaker) popOpponent(tag string) (Entry, string, bool) {
	if tag == "any" {
		for _, qt := range m.tagOrder {
			if len(m.queues[qt]) == 0 {
				continue
			}
			e, ok := m.popFront(qt)
			if !ok {
				continue
			}
			effective := qt
			if qt == "any" {
				effective = m.manager.DefaultTimeControl()
			}
			return e, effective, true
		}
		return Entry{}, "", false
	}

	if e, ok := m.popFront(tag); ok {
		return e, tag, true
	}
	if e, ok := m.popFront("any"); ok {
		return e, tag, true
	}
	return Entry{}, "", false
}

// pair assigns colours by an unbiased coin flip and wires the match
// through the very same Room entry points create_room/join_room use.
func (m *Matchmaker) pair(a, b Entry, timeControl string) {
	white, black := a, b
	if rand.Intn(2) == 1 {
		white, black = b, a
	}

	r, err := m.manager.Create(white.Session, white.Name, white.Send, timeControl)
	if err != nil {
		m.logger.Error("matchmaker: failed to create room for match", "error", err)
		return
	}
	if err := m.manager.Join(black.Session, black.Name, black.Send, r.Code); err != nil {
		m.logger.Error("matchmaker: failed to join paired opponent", "error", err, "room", r.Code)
	}
}
