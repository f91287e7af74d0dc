package room

import (
	"context"
	"time"

	"chessmatch-server/rules"
)

// handleDrawOffer relays a draw offer to the opponent. No pending state is
// stored beyond "opponent must respond" — duplicate offers simply re-notify.
func (r *Room) handleDrawOffer(a Action) {
	i, ok := r.slotIndexForSession(a.Session)
	if !ok {
		return
	}
	if r.Status != StatusPlaying {
		r.sendErrTo(r.Slots[i].Send, "Game not in progress")
		return
	}
	r.DrawOfferedBy = indexSide(i)
	r.sendToSlot(1-i, "draw_offered", struct{}{})
}

func (r *Room) handleDrawRespond(a Action) {
	i, ok := r.slotIndexForSession(a.Session)
	if !ok {
		return
	}
	if r.Status != StatusPlaying {
		return
	}
	r.DrawOfferedBy = ""
	if a.Accept {
		r.finalize(rules.ResultDraw, "agreement")
		return
	}
	r.sendToSlot(1-i, "draw_declined", struct{}{})
}

// handleRematchOffer is only meaningful once the Room has finished.
func (r *Room) handleRematchOffer(a Action) {
	i, ok := r.slotIndexForSession(a.Session)
	if !ok {
		return
	}
	if r.Status != StatusFinished {
		r.sendErrTo(r.Slots[i].Send, "Game not in progress")
		return
	}
	r.RematchOfferedBy = indexSide(i)
	r.sendToSlot(1-i, "rematch_offered", struct{}{})
}

func (r *Room) handleRematchRespond(a Action) {
	i, ok := r.slotIndexForSession(a.Session)
	if !ok {
		return
	}
	if r.Status != StatusFinished {
		return
	}
	if a.Accept {
		r.performRematch()
		return
	}
	r.RematchOfferedBy = ""
	r.sendToSlot(1-i, "rematch_declined", struct{}{})
}

// performRematch performs the finished -> playing transition: colours swap,
// fresh rule engine, move log, clocks and persistence id; the cleanup timer
// is cancelled and all disconnect/grace state resets.
func (r *Room) performRematch() {
	if r.cleanupTimer != nil {
		r.cleanupTimer.Cancel()
		r.cleanupTimer = nil
	}
	r.cancelDisconnectTimer(0)
	r.cancelDisconnectTimer(1)

	r.Slots[0], r.Slots[1] = r.Slots[1], r.Slots[0]
	for _, s := range r.Slots {
		if s != nil {
			s.Connected = s.Send != nil
			s.DisconnectedAt = time.Time{}
		}
	}

	r.Engine = rules.New()
	r.Moves = nil
	r.Clocks = ParseClocks(r.TimeControl)
	r.GameID = ""
	r.RematchOfferedBy = ""
	r.DrawOfferedBy = ""
	r.Status = StatusPlaying

	r.persistCreateGame(context.Background())
	if r.Clocks.Enabled {
		r.Clocks.LastMoveAt = nowMillis()
	}

	fen := r.Engine.FEN()
	r.sendToSlot(0, "rematch_start", gameStartPayload{
		RoomID: r.Code, Color: indexSide(0),
		FEN: fen, TimeControl: r.TimeControl, OpponentName: r.Slots[1].Name,
	})
	r.sendToSlot(1, "rematch_start", gameStartPayload{
		RoomID: r.Code, Color: indexSide(1),
		FEN: fen, TimeControl: r.TimeControl, OpponentName: r.Slots[0].Name,
	})
}
