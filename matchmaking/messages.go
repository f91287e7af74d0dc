package matchmaking

// errorPayload and queueJoinedPayload are the payload shapes sent via
// wsutil.Send, which wraps them in the {type,payload} wire envelope.

type errorPayload struct {
	Message string `json:"message"`
}

type queueJoinedPayload struct {
	TimeControl string `json:"timeControl"`
	Position    int    `json:"position"`
}
