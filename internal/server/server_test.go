package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/api"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/broadcast"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/config"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/queue"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/settings"
)

func newTestServer(t *testing.T, seedAssets bool) (*Server, *broadcast.Hub) {
	t.Helper()
	dir := t.TempDir()

	defaultImage := filepath.Join(dir, "default.gif")
	defaultSound := filepath.Join(dir, "default.mp3")
	require.NoError(t, os.WriteFile(defaultImage, []byte("gif"), 0o644))
	require.NoError(t, os.WriteFile(defaultSound, []byte("mp3"), 0o644))

	hub := broadcast.NewHub(clockwork.NewRealClock())
	t.Cleanup(hub.Stop)

	store := settings.NewStore(dir, hub)
	require.NoError(t, store.Load())

	assets := settings.NewAssets(dir, defaultImage, defaultSound)
	if seedAssets {
		require.NoError(t, assets.EnsureDefaults())
	}

	presenter := queue.NewPresenter(hub, clockwork.NewRealClock())
	t.Cleanup(presenter.Stop)

	handlers := api.NewHandlers(store, assets, presenter, hub, hub, nil, nil)
	dispatcher := api.NewDispatcher(handlers)

	cfg := &config.Config{Port: "0"}
	return NewServer(cfg, store, assets, hub, dispatcher), hub
}

func TestLivenessEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, true)

	for _, path := range []string{"/healthz", "/health/live"} {
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, 200, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	}
}

func TestReadinessChecksAssetsDir(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed_check":"assets"`)

	srv, _ = newTestServer(t, true)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, 200, rec.Code)
}

func TestVersionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
	assert.Contains(t, rec.Body.String(), `"go_version"`)
}

func TestSettingsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, 200, rec.Code)

	var doc domain.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, domain.DefaultVolume, doc.Volume)
	assert.Equal(t, domain.DefaultProgressBarTargetValue, doc.ProgressBarTargetValue)
}

func TestStaticTierAssets(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/image1.gif", nil))
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "gif", rec.Body.String())
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocketCommandRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, true)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts)

	request := `{"id":"req-1","method":"getSettings"}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(request)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var reply struct {
		ID    string          `json:"id"`
		Error *string         `json:"error"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &reply))
	assert.Equal(t, "req-1", reply.ID)
	assert.Nil(t, reply.Error)

	var doc domain.Settings
	require.NoError(t, json.Unmarshal(reply.Data, &doc))
	assert.Equal(t, domain.DefaultVolume, doc.Volume)
}

func TestWebSocketReceivesPushes(t *testing.T) {
	srv, hub := newTestServer(t, true)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.Publish(domain.TopicProgressBarUpdated, nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"progress-bar-updated","data":null}`, string(raw))
}

func TestWebSocketMutationBroadcastsToOtherClients(t *testing.T) {
	srv, hub := newTestServer(t, true)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	panel := dialWS(t, ts)
	overlay := dialWS(t, ts)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	request := `{"id":"req-1","method":"updateProgressBarTargetValue","params":{"value":90000}}`
	require.NoError(t, panel.WriteMessage(websocket.TextMessage, []byte(request)))

	// The overlay sees the change notification even though the panel issued it.
	require.NoError(t, overlay.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := overlay.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"progress-bar-updated","data":null}`, string(raw))
}
