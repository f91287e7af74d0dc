package room

import (
	"time"

	"chessmatch-server/roomtimer"
)

// handleDisconnect reacts to a connection close for a seated session. It
// reports whether the Room should be destroyed immediately (the
// waiting-room, sole-player case); Run returns right after, closing Done.
func (r *Room) handleDisconnect(a Action) bool {
	i, ok := r.slotIndexForSession(a.Session)
	if !ok {
		return false
	}

	switch r.Status {
	case StatusWaiting:
		r.handleCleanup()
		return true

	case StatusPlaying:
		slot := r.Slots[i]
		slot.Connected = false
		slot.Send = nil
		slot.DisconnectedAt = time.Now()

		opp := 1 - i
		r.sendToSlot(opp, "opponent_disconnected", disconnectedPayload{Timeout: r.graceMS / 1000})
		r.armDisconnectTimer(i, a.Session)
		return false

	default: // finished: cleanup TTL already running, nothing to do
		return false
	}
}

// armDisconnectTimer arms slot i's disconnect-grace timer, if one isn't
// already running for it — each slot tracks its own timer so one player's
// disconnect can't mask the other's.
func (r *Room) armDisconnectTimer(i int, session string) {
	if r.disconnectTimers[i] != nil {
		return
	}
	grace := time.Duration(r.graceMS) * time.Millisecond
	r.disconnectTimers[i] = roomtimer.Schedule(grace, r.Done, func() {
		select {
		case r.Actions <- Action{Type: ActionDisconnectTimeout, Session: session}:
		case <-r.Done:
		}
	})
}

// handleDisconnectTimeout re-checks the disconnect-grace condition before
// finalizing, since a reconnect may have raced the timer.
func (r *Room) handleDisconnectTimeout(a Action) {
	i, ok := r.slotIndexForSession(a.Session)
	if !ok {
		return
	}
	r.disconnectTimers[i] = nil
	if r.Status != StatusPlaying || r.Slots[i].Connected {
		return
	}
	r.finalize(opponentResult(indexSide(i)), "abandoned")
}

// handleReconnect restores a disconnected player's connection. The
// transport layer posts this on every auth handshake whose session is
// seated anywhere; a Room that isn't playing, or doesn't recognise the
// session, simply ignores it.
func (r *Room) handleReconnect(a Action) {
	i, ok := r.slotIndexForSession(a.Session)
	if !ok || r.Status != StatusPlaying {
		return
	}
	slot := r.Slots[i]
	slot.Send = a.Send
	slot.Connected = true
	slot.DisconnectedAt = time.Time{}
	r.cancelDisconnectTimer(i)

	moves := make([]string, len(r.Moves))
	for idx, mv := range r.Moves {
		moves[idx] = mv.SAN
	}
	opp := 1 - i
	oppConnected := r.Slots[opp] != nil && r.Slots[opp].Connected

	r.sendToSlot(i, "reconnect", reconnectPayload{
		RoomID: r.Code, Color: indexSide(i),
		FEN: r.Engine.FEN(), TimeControl: r.TimeControl, Moves: moves,
		Clocks: r.liveClocksPayload(), OpponentName: r.Slots[opp].Name,
		OpponentConnected: oppConnected,
	})
	r.sendToSlot(opp, "opponent_reconnected", struct{}{})
}
