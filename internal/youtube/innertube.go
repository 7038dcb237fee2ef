package youtube

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/metrics"
)

const (
	endpointResolveURL  = "navigation/resolve_url"
	endpointBrowse      = "browse"
	endpointNext        = "next"
	endpointGetLiveChat = "live_chat/get_live_chat"

	clientName    = "WEB"
	clientVersion = "2.20240304.00.00"
)

// Client is a low-level innertube caller. Requests are rate limited, wrapped
// in a circuit breaker, and deduplicated per endpoint+body via singleflight so
// a reconnecting control panel cannot stampede YouTube.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	group   singleflight.Group
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "innertube",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	HL            string `json:"hl"`
	GL            string `json:"gl"`
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
}

func defaultInnertubeContext() innertubeContext {
	return innertubeContext{
		Client: innertubeClient{
			HL:            "zh-TW",
			GL:            "TW",
			ClientName:    clientName,
			ClientVersion: clientVersion,
		},
	}
}

// post sends one innertube request and decodes the response into out.
func (c *Client) post(ctx context.Context, endpoint string, payload map[string]any, out any) error {
	body := map[string]any{"context": defaultInnertubeContext()}
	for key, value := range payload {
		body[key] = value
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return apperrors.InternalError("failed to encode innertube request", err)
	}

	// Identical in-flight requests share one round trip.
	raw, err, _ := c.group.Do(endpoint+":"+string(encoded), func() (any, error) {
		return c.roundTrip(ctx, endpoint, encoded)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw.([]byte), out); err != nil {
		return apperrors.ExternalError("failed to decode innertube response", err).WithField("endpoint", endpoint)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.InternalError("rate limiter wait aborted", err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		url := fmt.Sprintf("%s/youtubei/v1/%s", c.baseURL, endpoint)
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		request.Header.Set("Content-Type", "application/json")

		response, err := c.http.Do(request)
		if err != nil {
			return nil, err
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("innertube returned status %d", response.StatusCode)
		}
		return io.ReadAll(response.Body)
	})
	if err != nil {
		metrics.InnertubeRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, apperrors.ExternalError("innertube request failed", err).WithField("endpoint", endpoint)
	}

	metrics.InnertubeRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return result.([]byte), nil
}
