package room

import (
	"context"

	"chessmatch-server/rules"
)

// handleMove validates and applies a move in order: any failure sends an
// error frame to the sender with no state change.
func (r *Room) handleMove(a Action) {
	i, ok := r.slotIndexForSession(a.Session)
	if !ok {
		return
	}
	send := r.Slots[i].Send

	if r.Status != StatusPlaying {
		r.sendErrTo(send, "Game not in progress")
		return
	}
	side := indexSide(i)
	if r.Engine.Turn() != side {
		r.sendErrTo(send, "Not your turn")
		return
	}
	fen, err := r.Engine.Apply(a.SAN)
	if err != nil {
		r.sendErrTo(send, "Invalid move")
		return
	}

	now := nowMillis()
	ply := len(r.Moves)

	if r.Clocks.Enabled && ply > 0 {
		elapsed := now - r.Clocks.LastMoveAt
		remaining := r.clockFor(side) - elapsed
		if remaining <= 0 {
			// Flag-fall: clamp and finalize immediately. The move is not
			// appended to the log or broadcast — the position was already
			// offered to the rule engine, but the clock ran out before the
			// move could be recorded.
			r.setClock(side, 0)
			r.finalize(opponentResult(side), "timeout")
			return
		}
		r.setClock(side, remaining+r.Clocks.IncrementMs)
	}
	r.Clocks.LastMoveAt = now

	r.recordMove(ply, a.SAN, fen, now, side)

	opp := 1 - i
	r.sendToSlot(opp, "move", movePayload{SAN: a.SAN, FEN: fen, Clocks: r.clocksPayload()})
	if r.Clocks.Enabled {
		r.sendToSlot(i, "move_ack", moveAckPayload{Clocks: r.clocksPayload()})
	}

	if over, result, reason := r.Engine.Outcome(); over {
		r.finalize(result, string(reason))
	}
}

func (r *Room) recordMove(ply int, san, fen string, tsMS int64, side rules.Side) {
	r.Moves = append(r.Moves, MoveRecord{Ply: ply, SAN: san, FEN: fen, TimestampMs: tsMS, Side: side})
	if r.store != nil && r.GameID != "" {
		if err := r.store.AppendMove(context.Background(), r.GameID, ply, san, fen, tsMS, string(side)); err != nil {
			r.logger.Warn("append move persist failed", "err", err)
		}
	}
}

func opponentResult(loser rules.Side) rules.Result {
	if loser == rules.White {
		return rules.ResultBlackWins
	}
	return rules.ResultWhiteWins
}

// handleResign finalizes the room with the resigning side's opponent as
// the winner.
func (r *Room) handleResign(a Action) {
	i, ok := r.slotIndexForSession(a.Session)
	if !ok {
		return
	}
	if r.Status != StatusPlaying {
		r.sendErrTo(r.Slots[i].Send, "Game not in progress")
		return
	}
	r.finalize(opponentResult(indexSide(i)), "resignation")
}
