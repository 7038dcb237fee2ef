package ecpay

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
)

const msgSignalRFailed = "與綠界建立 signalr 連線時失敗"

// recordSeparator terminates every frame of the SignalR JSON hub protocol.
const recordSeparator = 0x1e

// SignalR JSON hub protocol message types.
const (
	messageTypeInvocation = 1
	messageTypePing       = 6
	messageTypeClose      = 7
)

// wsDialer lets tests substitute the WebSocket dialer.
type wsDialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// hubMessage is the subset of the protocol the AlertBox hub actually uses.
// ECPay invokes the broadcaster's account id as the target, so targets are
// dynamic and matched by the caller, not bound up front.
type hubMessage struct {
	Type      int               `json:"type"`
	Target    string            `json:"target,omitempty"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// hubConn is a minimal SignalR JSON-protocol connection.
type hubConn struct {
	conn   *websocket.Conn
	buffer []byte
}

// dialHub opens the WebSocket, authorizing with the AlertBox page token, and
// completes the protocol handshake.
func dialHub(ctx context.Context, dialer wsDialer, baseURL, token string) (*hubConn, error) {
	wsURL, err := hubURL(baseURL, token)
	if err != nil {
		return nil, err
	}

	conn, response, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if response != nil {
			err = fmt.Errorf("%w (status %d)", err, response.StatusCode)
		}
		return nil, apperrors.ExternalError(msgSignalRFailed, err)
	}

	h := &hubConn{conn: conn}
	if err := h.handshake(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return h, nil
}

// hubURL converts the configured https base into the wss endpoint.
func hubURL(baseURL, token string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", apperrors.InternalError("invalid signalr base url", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/donateHub"
	parsed.RawQuery = url.Values{"access_token": {token}}.Encode()
	return parsed.String(), nil
}

func (h *hubConn) handshake() error {
	if err := h.writeRecord([]byte(`{"protocol":"json","version":1}`)); err != nil {
		return apperrors.ExternalError(msgSignalRFailed, err)
	}

	record, err := h.readRecord()
	if err != nil {
		return apperrors.ExternalError(msgSignalRFailed, err)
	}

	var ack struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(record, &ack); err != nil || ack.Error != "" {
		return apperrors.ExternalError(msgSignalRFailed, fmt.Errorf("handshake rejected: %s", ack.Error))
	}
	return nil
}

// next blocks for the next invocation. Pings are answered inline; a close
// message or a broken connection ends the stream with an error.
func (h *hubConn) next() (hubMessage, error) {
	for {
		record, err := h.readRecord()
		if err != nil {
			return hubMessage{}, err
		}

		var message hubMessage
		if err := json.Unmarshal(record, &message); err != nil {
			return hubMessage{}, err
		}

		switch message.Type {
		case messageTypeInvocation:
			return message, nil
		case messageTypePing:
			if err := h.writeRecord([]byte(`{"type":6}`)); err != nil {
				return hubMessage{}, err
			}
		case messageTypeClose:
			return hubMessage{}, fmt.Errorf("hub closed the connection: %s", message.Error)
		}
	}
}

func (h *hubConn) close() error {
	return h.conn.Close()
}

func (h *hubConn) writeRecord(payload []byte) error {
	_ = h.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return h.conn.WriteMessage(websocket.TextMessage, append(payload, recordSeparator))
}

// readRecord returns one 0x1e-terminated record, buffering partial frames.
func (h *hubConn) readRecord() ([]byte, error) {
	for {
		if idx := bytes.IndexByte(h.buffer, recordSeparator); idx >= 0 {
			record := h.buffer[:idx]
			h.buffer = h.buffer[idx+1:]
			return record, nil
		}

		_, frame, err := h.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		h.buffer = append(h.buffer, frame...)
	}
}
