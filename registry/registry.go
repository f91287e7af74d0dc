// Package registry is the process-wide source of truth for "where is this
// session right now": which connection it is bound to, and which room (if
// any) it is seated in. A session's connection binding is recorded at the
// auth handshake; it has no room entry until it is seated in a room.
package registry

import "sync"

// Registry holds two mappings: connection to session, and session to room.
// Both are mutated by the transport layer (on connect/close) and by
// room/matchmaking event loops, so every access is serialized by mu.
type Registry struct {
	mu         sync.Mutex
	connToSess map[any]string
	sessToConn map[string]any
	sessToRoom map[string]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		connToSess: make(map[any]string),
		sessToConn: make(map[string]any),
		sessToRoom: make(map[string]string),
	}
}

// Bind associates a connection with a session, for routing close events
// back to the right session. A session bound to a newer connection
// supersedes whatever connection it was bound to before; the older
// connection's eventual Unbind reports current=false so its close is
// recognised as stale rather than evicting the session's room membership.
func (r *Registry) Bind(conn any, session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connToSess[conn] = session
	r.sessToConn[session] = conn
}

// Unbind removes a connection's session association and returns the
// session it was bound to, if any, and whether conn was still that
// session's current (most recently bound) connection. A newer connection
// having since superseded conn makes current false, so the caller (a
// close event) knows not to treat the session as disconnected.
func (r *Registry) Unbind(conn any) (session string, current bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.connToSess[conn]
	if !ok {
		return "", false
	}
	delete(r.connToSess, conn)
	current = r.sessToConn[session] == conn
	if current {
		delete(r.sessToConn, session)
	}
	return session, current
}

// SetRoom records that a session is seated in a room.
func (r *Registry) SetRoom(session, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessToRoom[session] = roomID
}

// ClearRoom removes a session's room association, if any.
func (r *Registry) ClearRoom(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessToRoom, session)
}

// RoomFor returns the room a session is currently seated in, if any.
func (r *Registry) RoomFor(session string) (roomID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok = r.sessToRoom[session]
	return roomID, ok
}

// IsSeated reports whether a session is currently seated in any room.
func (r *Registry) IsSeated(session string) bool {
	_, ok := r.RoomFor(session)
	return ok
}
