package room

import "chessmatch-server/rules"

// These are the payload shapes a Room sends directly to its players' Send
// channels, wrapped in a {type,payload} envelope by wsutil.Send. Typed
// rather than built ad hoc, since the wire protocol is fixed.

type errorPayload struct {
	Message string `json:"message"`
}

// ClocksPayload is the {w,b} clock pair sent on move/move_ack/reconnect
// frames. A nil *ClocksPayload marshals as JSON null for untimed games.
type ClocksPayload struct {
	W int64 `json:"w"`
	B int64 `json:"b"`
}

type gameStartPayload struct {
	RoomID       string     `json:"roomId"`
	Color        rules.Side `json:"color"`
	FEN          string     `json:"fen"`
	TimeControl  string     `json:"timeControl"`
	OpponentName string     `json:"opponentName"`
}

type movePayload struct {
	SAN    string         `json:"san"`
	FEN    string         `json:"fen"`
	Clocks *ClocksPayload `json:"clocks"`
}

type moveAckPayload struct {
	Clocks *ClocksPayload `json:"clocks"`
}

type gameEndPayload struct {
	Result rules.Result `json:"result"`
	Reason string       `json:"reason"`
}

type disconnectedPayload struct {
	Timeout int `json:"timeout"`
}

type reconnectPayload struct {
	RoomID            string         `json:"roomId"`
	Color             rules.Side     `json:"color"`
	FEN               string         `json:"fen"`
	TimeControl       string         `json:"timeControl"`
	Moves             []string       `json:"moves"`
	Clocks            *ClocksPayload `json:"clocks"`
	OpponentName      string         `json:"opponentName"`
	OpponentConnected bool           `json:"opponentConnected"`
}
