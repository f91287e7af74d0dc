package room

import (
	"log/slog"
	"strings"
	"sync"

	"chessmatch-server/config"
	"chessmatch-server/registry"
	"chessmatch-server/roomcode"
	"chessmatch-server/roomerrors"
	"chessmatch-server/storage"
)

// Manager owns every live Room, keyed by room code, and exposes the two
// entry points a Room's creation needs: Create (the sole occupant of a
// brand new waiting room) and Join (the second player). The matchmaker
// uses the very same two entry points for an automatic pairing:
// it creates the room with whichever matched session it flipped to be
// white, then immediately joins the other as black.
type Manager struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	store    storage.HistoryStore
	registry *registry.Registry
	config   *config.Config
	logger   *slog.Logger
}

// NewManager creates an empty Manager.
func NewManager(store storage.HistoryStore, reg *registry.Registry, cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		rooms:    make(map[string]*Room),
		store:    store,
		registry: reg,
		config:   cfg,
		logger:   logger,
	}
}

// DefaultTimeControl exposes the configured default, for the matchmaker's
// own wildcard-tag normalization (it must not collapse "any" to the
// default the way create_room does, since "any" is itself a live queue).
func (m *Manager) DefaultTimeControl() string {
	return m.config.DefaultTimeControl
}

func (m *Manager) taken(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[code]
	return ok
}

// Create seats session as white in a freshly created waiting room and
// starts its event loop. Rejects a session that is already seated
// elsewhere, so a second create_room call from an already-seated session
// fails instead of silently orphaning the first room.
func (m *Manager) Create(session, name string, send chan []byte, timeControl string) (*Room, error) {
	if m.registry.IsSeated(session) {
		return nil, roomerrors.ErrAlreadyInGame
	}
	tc, err := NormalizeTimeControl(timeControl, m.config.DefaultTimeControl)
	if err != nil {
		return nil, err
	}

	code, err := roomcode.Generate(m.taken)
	if err != nil {
		return nil, err
	}

	logger := m.logger.With("tag", "room", "room", code)
	r := newRoom(code, tc, m.store, m.registry, m.config.RoomTTLAfterEndMS, m.config.DisconnectGraceMS, logger, m.remove)
	r.Slots[0] = &Slot{Session: session, Name: name, Send: send, Connected: true}

	m.mu.Lock()
	m.rooms[code] = r
	m.mu.Unlock()

	m.registry.SetRoom(session, code)
	go r.Run()
	return r, nil
}

// Join posts the second player's arrival onto an existing room's own event
// loop, so the waiting -> playing check is serialized against any
// concurrent join attempt for the same room.
func (m *Manager) Join(session, name string, send chan []byte, code string) error {
	r, ok := m.Get(code)
	if !ok {
		return roomerrors.ErrRoomNotFound
	}
	r.Actions <- Action{Type: ActionJoin, Session: session, Name: name, Send: send}
	return nil
}

// Get looks up a room by its (case-insensitive) code.
func (m *Manager) Get(code string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[strings.ToUpper(code)]
	return r, ok
}

// RouteSession finds the room a session is currently seated in, via the
// Session Registry, combining the two lookups the transport layer needs
// to dispatch a move/resign/offer message.
func (m *Manager) RouteSession(session string) (*Room, bool) {
	code, ok := m.registry.RoomFor(session)
	if !ok {
		return nil, false
	}
	return m.Get(code)
}

// Reconnect routes a fresh connection's auth handshake into the room the
// session is seated in, if any. The Room itself decides whether a
// reconnect frame is warranted (only when it is still playing).
func (m *Manager) Reconnect(session string, send chan []byte) {
	r, ok := m.RouteSession(session)
	if !ok {
		return
	}
	r.Actions <- Action{Type: ActionReconnect, Session: session, Send: send}
}

func (m *Manager) remove(code string) {
	m.mu.Lock()
	delete(m.rooms, code)
	m.mu.Unlock()
}
