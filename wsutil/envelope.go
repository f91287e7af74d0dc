package wsutil

import (
	"encoding/json"
	"log"
)

// Envelope is the wire shape every frame in both directions uses:
// {"type":"...","payload":{...}}.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Send marshals payload into an Envelope of the given type and delivers it
// through SafeSend. A nil channel is a silent no-op, matching the
// send-safety rule for a player slot that currently has no live connection.
func Send(ch chan []byte, msgType string, payload any) {
	if ch == nil {
		return
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: payload})
	if err != nil {
		log.Printf("[wsutil] Send: marshal failed for type %q: %v", msgType, err)
		return
	}
	SafeSend(ch, data)
}
