package broadcast

import (
	"errors"
	"log/slog"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/metrics"
)

const maxClients = 64

var (
	ErrHubFull    = errors.New("broadcast: too many connected clients")
	ErrHubStopped = errors.New("broadcast: hub is stopped")
)

// envelope is the wire shape of every push message.
type envelope struct {
	Event domain.Topic `json:"event"`
	Data  any          `json:"data"`
}

// Hub owns the set of connected clients. All state lives inside the run
// goroutine; the exported methods only exchange commands with it, so no lock
// guards the client set.
type Hub struct {
	clock clockwork.Clock

	commands chan hubCommand
	stopped  chan struct{}
	stopOnce sync.Once
}

type hubCommand interface{ isHubCommand() }

type registerCommand struct {
	connection *websocket.Conn
	reply      chan error
}

type unregisterCommand struct {
	connection *websocket.Conn
}

type broadcastCommand struct {
	topic   domain.Topic
	message []byte
}

type sendCommand struct {
	connection *websocket.Conn
	message    []byte
}

type countCommand struct {
	reply chan int
}

func (registerCommand) isHubCommand()   {}
func (unregisterCommand) isHubCommand() {}
func (broadcastCommand) isHubCommand()  {}
func (sendCommand) isHubCommand()       {}
func (countCommand) isHubCommand()      {}

func NewHub(clock clockwork.Clock) *Hub {
	h := &Hub{
		clock:    clock,
		commands: make(chan hubCommand),
		stopped:  make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds a connection to the hub and starts its writer goroutine. The
// hub owns the connection's write side from this point on.
func (h *Hub) Register(connection *websocket.Conn) error {
	reply := make(chan error, 1)
	if !h.submit(registerCommand{connection: connection, reply: reply}) {
		return ErrHubStopped
	}
	return <-reply
}

// Unregister removes a connection and closes it. Safe to call for connections
// the hub already evicted.
func (h *Hub) Unregister(connection *websocket.Conn) {
	h.submit(unregisterCommand{connection: connection})
}

// Publish broadcasts an event envelope to every connected client. It
// implements domain.Publisher; delivery is fire-and-forget.
func (h *Hub) Publish(topic domain.Topic, payload any) {
	message, err := json.Marshal(envelope{Event: topic, Data: payload})
	if err != nil {
		slog.Error("failed to encode broadcast payload", "topic", topic, "error", err)
		return
	}
	h.submit(broadcastCommand{topic: topic, message: message})
}

// Send queues a message for a single connection, used for command replies.
func (h *Hub) Send(connection *websocket.Conn, message []byte) {
	h.submit(sendCommand{connection: connection, message: message})
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	if !h.submit(countCommand{reply: reply}) {
		return 0
	}
	return <-reply
}

// Stop disconnects every client with a normal close frame and shuts the hub
// down. Further commands become no-ops.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopped) })
}

func (h *Hub) submit(command hubCommand) bool {
	select {
	case h.commands <- command:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) run() {
	clients := make(map[*websocket.Conn]*clientWriter)

	defer func() {
		for connection, writer := range clients {
			writer.stopGraceful("server shutting down")
			delete(clients, connection)
		}
		metrics.HubConnectedClients.Set(0)
	}()

	for {
		select {
		case command := <-h.commands:
			h.handle(clients, command)
		case <-h.stopped:
			return
		}
	}
}

func (h *Hub) handle(clients map[*websocket.Conn]*clientWriter, command hubCommand) {
	switch cmd := command.(type) {
	case registerCommand:
		if len(clients) >= maxClients {
			cmd.reply <- ErrHubFull
			return
		}
		writer := newClientWriter(uuid.NewString(), cmd.connection, h.clock)
		clients[cmd.connection] = writer
		metrics.HubConnectedClients.Set(float64(len(clients)))
		slog.Debug("client connected", "client_id", writer.id, "clients", len(clients))
		cmd.reply <- nil

	case unregisterCommand:
		writer, ok := clients[cmd.connection]
		if !ok {
			return
		}
		delete(clients, cmd.connection)
		writer.stop()
		metrics.HubConnectedClients.Set(float64(len(clients)))
		slog.Debug("client disconnected", "client_id", writer.id, "clients", len(clients))

	case broadcastCommand:
		metrics.HubBroadcastsTotal.WithLabelValues(string(cmd.topic)).Inc()
		for connection, writer := range clients {
			select {
			case writer.sendChannel <- cmd.message:
			default:
				// Buffer full means the client stopped draining; cut it loose
				// rather than stall everyone else.
				delete(clients, connection)
				writer.stopGraceful("client too slow")
				metrics.HubSlowClientsEvicted.Inc()
				slog.Warn("evicted slow client", "client_id", writer.id, "clients", len(clients))
			}
		}
		metrics.HubConnectedClients.Set(float64(len(clients)))

	case sendCommand:
		writer, ok := clients[cmd.connection]
		if !ok {
			return
		}
		select {
		case writer.sendChannel <- cmd.message:
		default:
			delete(clients, cmd.connection)
			writer.stopGraceful("client too slow")
			metrics.HubSlowClientsEvicted.Inc()
			metrics.HubConnectedClients.Set(float64(len(clients)))
		}

	case countCommand:
		cmd.reply <- len(clients)
	}
}
