package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// newTestServer upgrades every request and registers the connection with the
// hub, mirroring what the real handler does.
func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connection, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		require.NoError(t, hub.Register(connection))
		go func() {
			for {
				if _, _, err := connection.ReadMessage(); err != nil {
					hub.Unregister(connection)
					return
				}
			}
		}()
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	connection, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = connection.Close() })
	return connection
}

func readEnvelope(t *testing.T, connection *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, connection.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, message, err := connection.ReadMessage()
	require.NoError(t, err)

	var received struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(message, &received))
	return received.Event, received.Data
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ClientCount() == want
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPublishReachesEveryClient(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock())
	defer hub.Stop()
	server := newTestServer(t, hub)

	first := dial(t, server)
	second := dial(t, server)
	waitForClients(t, hub, 2)

	hub.Publish(domain.TopicOpen, domain.GiftEvent{Name: "小美", Amount: "10", AnimationTimeInMilliseconds: 5000})

	for _, connection := range []*websocket.Conn{first, second} {
		event, data := readEnvelope(t, connection)
		assert.Equal(t, "open", event)

		var gift domain.GiftEvent
		require.NoError(t, json.Unmarshal(data, &gift))
		assert.Equal(t, "小美", gift.Name)
		assert.Equal(t, "10", gift.Amount)
		assert.Equal(t, 5000, gift.AnimationTimeInMilliseconds)
	}
}

func TestPublishWithNilPayload(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock())
	defer hub.Stop()
	server := newTestServer(t, hub)

	connection := dial(t, server)
	waitForClients(t, hub, 1)

	hub.Publish(domain.TopicClose, nil)

	event, data := readEnvelope(t, connection)
	assert.Equal(t, "close", event)
	assert.Equal(t, "null", string(data))
}

func TestSendIsUnicast(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock())
	defer hub.Stop()

	// Send needs the server-side *websocket.Conn, so capture it on upgrade.
	accepted := make(chan *websocket.Conn, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connection, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		require.NoError(t, hub.Register(connection))
		accepted <- connection
	}))
	t.Cleanup(server.Close)

	first := dial(t, server)
	target := <-accepted
	second := dial(t, server)
	<-accepted
	waitForClients(t, hub, 2)

	hub.Send(target, []byte(`{"id":"abc","error":null,"data":{}}`))

	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, message, err := first.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","error":null,"data":{}}`, string(message))

	require.NoError(t, second.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = second.ReadMessage()
	assert.Error(t, err, "unicast message must not reach other clients")
}

func TestUnregisterClosesConnection(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock())
	defer hub.Stop()

	accepted := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connection, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		require.NoError(t, hub.Register(connection))
		accepted <- connection
	}))
	t.Cleanup(server.Close)

	client := dial(t, server)
	serverSide := <-accepted
	waitForClients(t, hub, 1)

	hub.Unregister(serverSide)
	waitForClients(t, hub, 0)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)

	// A second unregister for the same connection is a no-op.
	hub.Unregister(serverSide)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestStopSendsCloseFrame(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock())
	server := newTestServer(t, hub)

	client := dial(t, server)
	waitForClients(t, hub, 1)

	hub.Stop()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	assert.Equal(t, 0, hub.ClientCount())
	assert.ErrorIs(t, hub.Register(client), ErrHubStopped)
}

func TestPublishAfterStopIsNoOp(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock())
	hub.Stop()

	hub.Publish(domain.TopicUpdate, nil)
	assert.Equal(t, 0, hub.ClientCount())
}
