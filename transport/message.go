package transport

import "encoding/json"

// inboundEnvelope peels the {type,payload} wire frame apart without
// committing to a payload shape yet — each handler unmarshals Payload
// into the struct it expects.
type inboundEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// --- Client-to-server payloads ---

type authPayload struct {
	SessionID string `json:"sessionId"`
}

type createRoomPayload struct {
	Name        string `json:"name"`
	TimeControl string `json:"timeControl"`
}

type joinRoomPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type quickMatchPayload struct {
	Name        string `json:"name"`
	TimeControl string `json:"timeControl"`
}

type movePayload struct {
	SAN string `json:"san"`
}

type respondPayload struct {
	Accept bool `json:"accept"`
}

// --- Server-to-Client payloads not already defined by room/matchmaking ---

type roomCreatedPayload struct {
	RoomID string `json:"roomId"`
	Color  string `json:"color"`
}

type errorPayload struct {
	Message string `json:"message"`
}
