package gateway

// Inbound actions understood by the gateway.
const (
	ActionHeartbeat = "heartbeat"
	ActionSubscribe = "subscribe"
)

// FrameConnected is sent once right after the upgrade.
const FrameConnected = "CONNECTED"

type inbound struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

type connectedFrame struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}
