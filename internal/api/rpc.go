package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/metrics"
)

// Request is one inbound command frame.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response is the reply frame for a Request. Exactly one of Error and Data is
// meaningful; Error is null on success so clients can check it directly.
type Response struct {
	ID    string  `json:"id"`
	Error *string `json:"error"`
	Data  any     `json:"data"`
}

type handlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Dispatcher routes command frames to their handlers.
type Dispatcher struct {
	handlers map[string]handlerFunc
}

func NewDispatcher(h *Handlers) *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]handlerFunc)}
	h.register(d)
	return d
}

// Dispatch decodes one frame, runs its handler and returns the encoded reply.
// It never returns an empty slice: every frame gets a reply, malformed ones
// included.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) []byte {
	var request Request
	if err := json.Unmarshal(raw, &request); err != nil {
		metrics.RPCRequestsTotal.WithLabelValues("unknown", "error").Inc()
		return encodeResponse(errorResponse(request.ID, "malformed request"))
	}

	handler, ok := d.handlers[request.Method]
	if !ok {
		metrics.RPCRequestsTotal.WithLabelValues(request.Method, "error").Inc()
		return encodeResponse(errorResponse(request.ID, "unknown method: "+request.Method))
	}

	start := time.Now()
	data, err := handler(ctx, request.Params)
	metrics.RPCRequestDuration.WithLabelValues(request.Method).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RPCRequestsTotal.WithLabelValues(request.Method, "error").Inc()
		structured := apperrors.AsStructuredError(err)
		slog.Warn("command failed", "method", request.Method, "error", structured)
		return encodeResponse(errorResponse(request.ID, structured.Message))
	}

	metrics.RPCRequestsTotal.WithLabelValues(request.Method, "ok").Inc()
	return encodeResponse(Response{ID: request.ID, Error: nil, Data: data})
}

func errorResponse(id, message string) Response {
	return Response{ID: id, Error: &message}
}

func encodeResponse(response Response) []byte {
	raw, err := json.Marshal(response)
	if err != nil {
		// Data payloads are our own types; this only fires on a programming error.
		slog.Error("failed to encode reply", "id", response.ID, "error", err)
		fallback := "internal server error"
		raw, _ = json.Marshal(Response{ID: response.ID, Error: &fallback})
	}
	return raw
}

var validate = validator.New()

// bind decodes params into out and validates it. Absent params decode as an
// empty object so required-field validation still fires.
func bind(params json.RawMessage, out any) error {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(params, out); err != nil {
		return apperrors.ValidationError("invalid params").WithField("cause", err.Error())
	}
	if err := validate.Struct(out); err != nil {
		return apperrors.ValidationError("invalid params: " + err.Error())
	}
	return nil
}
