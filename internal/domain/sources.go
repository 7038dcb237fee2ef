package domain

// ConnectionState mirrors the lifecycle of an event-source connection.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "Disconnected"
	ConnectionConnecting   ConnectionState = "Connecting"
	ConnectionConnected    ConnectionState = "Connected"
	ConnectionReconnecting ConnectionState = "Reconnecting"
)

// ConnectionStateChange is the payload of the connection-state-changed topic.
type ConnectionStateChange struct {
	Source string          `json:"source"`
	State  ConnectionState `json:"state"`
}

// GiftPresenter accepts normalized gift events for one-at-a-time presentation.
type GiftPresenter interface {
	Enqueue(event GiftEvent)
}
