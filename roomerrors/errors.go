// Package roomerrors holds sentinel domain errors shared by the matchmaking,
// transport, and room packages, so none of them need to import another just
// to compare an error value.
package roomerrors

import "errors"

var (
	ErrRoomNotFound        = errors.New("Room not found")
	ErrRoomNotAccepting    = errors.New("Room is not accepting players")
	ErrAlreadyInRoom       = errors.New("You are already in this room")
	ErrNotAPlayer          = errors.New("You are not a player in this room")
	ErrNotInRoom           = errors.New("Not in a room")
	ErrGameNotInProgress   = errors.New("Game not in progress")
	ErrNotYourTurn         = errors.New("Not your turn")
	ErrInvalidMove         = errors.New("Invalid move")
	ErrAlreadyInQueue      = errors.New("Already in queue")
	ErrAlreadyInGame       = errors.New("Already in a game")
)
