package room

import "context"

// handleJoin seats the second player and performs the waiting -> playing
// transition: ordered validation, an error frame on first failure with no
// mutation, otherwise mutate and broadcast.
func (r *Room) handleJoin(a Action) {
	if _, already := r.slotIndexForSession(a.Session); already {
		r.sendErrTo(a.Send, "You are already in this room")
		return
	}
	if r.Status != StatusWaiting {
		r.sendErrTo(a.Send, "Room is not accepting players")
		return
	}

	r.Slots[1] = &Slot{Session: a.Session, Name: a.Name, Send: a.Send, Connected: true}
	r.registry.SetRoom(a.Session, r.Code)
	r.Status = StatusPlaying

	r.persistCreateGame(context.Background())
	if r.Clocks.Enabled {
		r.Clocks.LastMoveAt = nowMillis()
	}

	fen := r.Engine.FEN()
	r.sendToSlot(0, "game_start", gameStartPayload{
		RoomID: r.Code, Color: indexSide(0),
		FEN: fen, TimeControl: r.TimeControl, OpponentName: r.Slots[1].Name,
	})
	r.sendToSlot(1, "game_start", gameStartPayload{
		RoomID: r.Code, Color: indexSide(1),
		FEN: fen, TimeControl: r.TimeControl, OpponentName: r.Slots[0].Name,
	})
}
