// Package transport is the framed JSON conduit between clients and the
// server: one WebSocket connection per client, a handshake gate requiring
// auth as the first frame, liveness pings, and send-safety.
package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"chessmatch-server/config"
	"chessmatch-server/matchmaking"
	"chessmatch-server/registry"
	"chessmatch-server/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns every live connection and the components a connection's
// handlers dispatch into: the room manager, the matchmaker, and the
// session registry. It does not itself hold game state — that's the
// Room's and Matchmaker's job — it only tracks which connections are
// currently open.
type Hub struct {
	cfg        *config.Config
	rooms      *room.Manager
	matchmaker *matchmaking.Matchmaker
	registry   *registry.Registry
	logger     *slog.Logger

	conns      map[*Conn]bool
	register   chan *Conn
	unregister chan *Conn
}

// NewHub creates a Hub wired to the given domain components.
func NewHub(cfg *config.Config, rooms *room.Manager, mm *matchmaking.Matchmaker, reg *registry.Registry, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:        cfg,
		rooms:      rooms,
		matchmaker: mm,
		registry:   reg,
		logger:     logger,
		conns:      make(map[*Conn]bool),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
	}
}

// Run is the Hub's own event loop, serializing connection bookkeeping
// (register/unregister) the same way a Room serializes its Actions.
// Returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("transport shutting down", "tag", "transport")
			return

		case c := <-h.register:
			h.conns[c] = true

		case c := <-h.unregister:
			if _, ok := h.conns[c]; !ok {
				continue
			}
			delete(h.conns, c)
			close(c.Send)
			h.handleClose(c)
		}
	}
}

// handleClose reacts to a connection close for a (possibly unauthenticated)
// connection. A connection that never completed the handshake has no
// session to route. A stale close from a connection that a newer one has
// since superseded for the same session is ignored — the
// registry's Unbind reports current=false in that case — so the older
// connection's close never evicts the session's live room membership.
func (h *Hub) handleClose(c *Conn) {
	if !c.authenticated {
		return
	}
	session, current := h.registry.Unbind(c)
	if !current {
		return
	}
	h.matchmaker.Leave(session)
	if r, ok := h.rooms.RouteSession(session); ok {
		select {
		case r.Actions <- room.Action{Type: room.ActionDisconnect, Session: session}:
		default:
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and starts its
// pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", "tag", "transport", "err", err)
		return
	}

	c := newConn(h, ws)
	h.register <- c

	go c.WritePump()
	go c.ReadPump()
}
