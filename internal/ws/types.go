package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady = "ready"
	MsgPong  = "pong"
	MsgError = "error"
)

// Message is the envelope for control frames. Task events are sent as
// domain.TaskEvent, which shares the "type" member.
type Message struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}
