package transport

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"chessmatch-server/room"
	"chessmatch-server/roomerrors"
	"chessmatch-server/wsutil"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// maxMessageSize is the largest frame accepted from a peer.
	maxMessageSize = 4096
)

// Conn is one WebSocket connection's read/write pumps and handshake state:
// a buffered Send channel drained by WritePump, and a ReadPump goroutine
// that decodes frames and dispatches them. A connection isn't bound to a
// single room for its whole lifetime — it routes to whichever room or
// queue the session is currently in.
type Conn struct {
	hub  *Hub
	ws   *websocket.Conn
	Send chan []byte

	sessionID     string
	authenticated bool
	alive         atomic.Bool
}

func newConn(hub *Hub, ws *websocket.Conn) *Conn {
	c := &Conn{hub: hub, ws: ws, Send: make(chan []byte, 256)}
	c.alive.Store(true)
	return c
}

// IsAlive reports whether this connection's read pump is still running.
// Passed to the matchmaker as the liveness check for a queued entry: a
// dead opponent is discarded and the pop retried.
func (c *Conn) IsAlive() bool {
	return c.alive.Load()
}

// ReadPump pumps frames from the WebSocket into handleMessage. Runs in its
// own goroutine per connection.
func (c *Conn) ReadPump() {
	defer func() {
		c.alive.Store(false)
		c.hub.unregister <- c
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	pongWait := 2 * time.Duration(c.hub.cfg.PingIntervalMS) * time.Millisecond
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("read error", "tag", "transport", "err", err)
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump pumps the Send channel to the WebSocket connection and sends
// the liveness ping on cfg.PingIntervalMS, an application-level probe
// needed because many clients sit behind proxies that silently drop idle
// TCP connections.
func (c *Conn) WritePump() {
	pingPeriod := time.Duration(c.hub.cfg.PingIntervalMS) * time.Millisecond
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.ws.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) handleMessage(data []byte) {
	var envelope inboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	if !c.authenticated && envelope.Type != "auth" {
		c.sendError("First message must be auth with sessionId")
		return
	}

	switch envelope.Type {
	case "auth":
		c.handleAuth(envelope.Payload)
	case "create_room":
		c.handleCreateRoom(envelope.Payload)
	case "join_room":
		c.handleJoinRoom(envelope.Payload)
	case "quick_match":
		c.handleQuickMatch(envelope.Payload)
	case "cancel_queue":
		c.hub.matchmaker.Leave(c.sessionID)
	case "move":
		c.handleMove(envelope.Payload)
	case "resign":
		c.postRoomAction(room.Action{Type: room.ActionResign})
	case "draw_offer":
		c.postRoomAction(room.Action{Type: room.ActionDrawOffer})
	case "draw_respond":
		c.handleRespond(envelope.Payload, room.ActionDrawRespond)
	case "rematch_offer":
		c.postRoomAction(room.Action{Type: room.ActionRematchOffer})
	case "rematch_respond":
		c.handleRespond(envelope.Payload, room.ActionRematchRespond)
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Conn) handleAuth(raw json.RawMessage) {
	if c.authenticated {
		c.sendError("Already authenticated.")
		return
	}
	var msg authPayload
	if err := json.Unmarshal(raw, &msg); err != nil || msg.SessionID == "" {
		c.sendError("Missing sessionId")
		return
	}
	c.sessionID = msg.SessionID
	c.authenticated = true
	c.hub.registry.Bind(c, c.sessionID)

	c.sendOK("auth_ok", struct{}{})

	// If this session is seated in a playing room, this handshake is a
	// reconnect; the Room decides whether a reconnect frame is warranted,
	// so this is posted unconditionally.
	c.hub.rooms.Reconnect(c.sessionID, c.Send)
}

func (c *Conn) handleCreateRoom(raw json.RawMessage) {
	var msg createRoomPayload
	_ = json.Unmarshal(raw, &msg)
	name, err := c.playerName(msg.Name)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	r, err := c.hub.rooms.Create(c.sessionID, name, c.Send, msg.TimeControl)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendOK("room_created", roomCreatedPayload{RoomID: r.Code, Color: "w"})
}

func (c *Conn) handleJoinRoom(raw json.RawMessage) {
	var msg joinRoomPayload
	_ = json.Unmarshal(raw, &msg)
	code := strings.ToUpper(strings.TrimSpace(msg.RoomID))
	if code == "" {
		c.sendError("Missing roomId")
		return
	}
	name, err := c.playerName(msg.Name)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if err := c.hub.rooms.Join(c.sessionID, name, c.Send, code); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Conn) handleQuickMatch(raw json.RawMessage) {
	var msg quickMatchPayload
	_ = json.Unmarshal(raw, &msg)
	name, err := c.playerName(msg.Name)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.hub.matchmaker.Join(c.sessionID, name, c.Send, msg.TimeControl, c.IsAlive)
}

func (c *Conn) handleMove(raw json.RawMessage) {
	var msg movePayload
	if err := json.Unmarshal(raw, &msg); err != nil || msg.SAN == "" {
		c.sendError("Missing san")
		return
	}
	c.postRoomAction(room.Action{Type: room.ActionMove, SAN: msg.SAN})
}

func (c *Conn) handleRespond(raw json.RawMessage, actionType room.ActionType) {
	var msg respondPayload
	_ = json.Unmarshal(raw, &msg)
	c.postRoomAction(room.Action{Type: actionType, Accept: msg.Accept})
}

// postRoomAction routes a, tagged with this connection's session, to the
// room that session is seated in. A session not seated anywhere is a
// domain error; a room whose Actions channel is saturated silently drops
// the action rather than blocking the read pump.
func (c *Conn) postRoomAction(a room.Action) {
	r, ok := c.hub.rooms.RouteSession(c.sessionID)
	if !ok {
		c.sendError(roomerrors.ErrNotInRoom.Error())
		return
	}
	a.Session = c.sessionID
	select {
	case r.Actions <- a:
	default:
		c.hub.logger.Warn("dropped action, room busy", "tag", "transport", "room", r.Code)
	}
}

func (c *Conn) sendOK(msgType string, payload any) {
	wsutil.Send(c.Send, msgType, payload)
}

func (c *Conn) sendError(message string) {
	wsutil.Send(c.Send, "error", errorPayload{Message: message})
}

// playerName trims a client-supplied display name, defaulting to "Player"
// when blank, and enforces the configured MaxNameLength.
func (c *Conn) playerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Player", nil
	}
	if len(name) > c.hub.cfg.MaxNameLength {
		return "", fmt.Errorf("name must be at most %d characters", c.hub.cfg.MaxNameLength)
	}
	return name, nil
}
