package stream

// ControlMessage is the schema shared by every JSON control message in
// both directions, matching the original server/client's message dict.
type ControlMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Name    string `json:"name,omitempty"`
	Clients int    `json:"clients,omitempty"`
}

const (
	msgWelcome  = "welcome"
	msgPing     = "ping"
	msgPong     = "pong"
	msgStatus   = "status"
	msgSetName  = "set_name"
)
