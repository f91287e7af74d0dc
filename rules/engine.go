// Package rules adapts github.com/corentings/chess/v2 to the narrow
// interface the room package needs: apply a SAN move, read whose turn it
// is, read the FEN, and detect game-over with a reason. No analysis or
// evaluation is exposed here — that is explicitly out of scope.
package rules

import (
	"fmt"

	"github.com/corentings/chess/v2"
)

// Side is a player color, "w" or "b".
type Side string

const (
	White Side = "w"
	Black Side = "b"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == White {
		return Black
	}
	return White
}

// Reason is a game-over reason, matching the values the persistence
// interface and the wire protocol expect.
type Reason string

const (
	ReasonCheckmate    Reason = "checkmate"
	ReasonStalemate    Reason = "stalemate"
	ReasonRepetition   Reason = "repetition"
	ReasonInsufficient Reason = "insufficient"
	ReasonFiftyMove    Reason = "fifty-move"
)

// Result is a game result string as sent to clients and persisted.
type Result string

const (
	ResultWhiteWins Result = "1-0"
	ResultBlackWins Result = "0-1"
	ResultDraw      Result = "1/2-1/2"
)

// Engine wraps a single game's authoritative position.
type Engine struct {
	g *chess.Game
}

// New returns an Engine at the standard starting position.
func New() *Engine {
	return &Engine{g: chess.NewGame()}
}

// Apply offers a SAN move to the engine. On success it returns the
// resulting FEN; on rejection it returns an error and the position is
// unchanged.
func (e *Engine) Apply(san string) (fen string, err error) {
	if err := e.g.MoveStr(san); err != nil {
		return "", fmt.Errorf("invalid move %q: %w", san, err)
	}
	return e.g.FEN(), nil
}

// Turn returns the side to move.
func (e *Engine) Turn() Side {
	if e.g.Position().Turn() == chess.White {
		return White
	}
	return Black
}

// FEN returns the current position in Forsyth-Edwards Notation.
func (e *Engine) FEN() string {
	return e.g.FEN()
}

// Ply returns the number of half-moves played so far.
func (e *Engine) Ply() int {
	return len(e.g.Moves())
}

// Outcome reports whether the game has ended, and if so, the result and
// reason. Draw reasons are prioritized per the spec: stalemate, then
// threefold repetition, then insufficient material, then the fifty-move
// rule — the engine only ever reports one terminal cause per position, so
// the priority only matters when a position happens to satisfy more than
// one (fifty-move and repetition can coincide).
func (e *Engine) Outcome() (over bool, result Result, reason Reason) {
	outcome := e.g.Outcome()
	if outcome == chess.NoOutcome {
		return false, "", ""
	}

	method := e.g.Method()
	switch method {
	case chess.Stalemate:
		return true, ResultDraw, ReasonStalemate
	case chess.ThreefoldRepetition, chess.FivefoldRepetition:
		return true, ResultDraw, ReasonRepetition
	case chess.InsufficientMaterial:
		return true, ResultDraw, ReasonInsufficient
	case chess.FiftyMoveRule, chess.SeventyFiveMoveRule:
		return true, ResultDraw, ReasonFiftyMove
	}

	switch outcome {
	case chess.WhiteWon:
		return true, ResultWhiteWins, ReasonCheckmate
	case chess.BlackWon:
		return true, ResultBlackWins, ReasonCheckmate
	case chess.Draw:
		return true, ResultDraw, ReasonStalemate
	}
	return false, "", ""
}
