package ecpay

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/metrics"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/settings"
)

const (
	msgBadAlertBoxURL  = "網址格式錯誤（請確認您所輸入的網址是否正確）"
	msgOpayUnsupported = "暫時不支援歐付寶 OPAY"

	sourceName = "ecpay"

	reconnectDelay       = 5 * time.Second
	maxReconnectAttempts = 5
)

// Config carries the per-environment base URLs, so the staging hub and tests
// can stand in for production.
type Config struct {
	PaymentBaseURL      string
	PaymentStageBaseURL string
	SignalRBaseURL      string
	SignalRStageBaseURL string
}

// Service is the donation hub adapter. One AlertBox account is connected at a
// time; each pushed donation is recorded in the settings document and
// broadcast to overlays.
type Service struct {
	config    Config
	http      *http.Client
	dialer    wsDialer
	store     *settings.Store
	publisher domain.Publisher
	clock     clockwork.Clock

	mu     sync.Mutex
	state  domain.ConnectionState
	cancel context.CancelFunc
	hub    *hubConn
}

func NewService(
	config Config,
	httpClient *http.Client,
	dialer wsDialer,
	store *settings.Store,
	publisher domain.Publisher,
	clock clockwork.Clock,
) *Service {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if publisher == nil {
		publisher = domain.NopPublisher{}
	}
	return &Service{
		config:    config,
		http:      httpClient,
		dialer:    dialer,
		store:     store,
		publisher: publisher,
		clock:     clock,
		state:     domain.ConnectionDisconnected,
	}
}

// State reports the donation listener's connection state.
func (s *Service) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) setState(state domain.ConnectionState) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed {
		s.publisher.Publish(domain.TopicConnectionStateChanged, domain.ConnectionStateChange{
			Source: sourceName,
			State:  state,
		})
	}
}

// parseAlertBoxURL validates a pasted AlertBox link and extracts the payment
// source it refers to.
func parseAlertBoxURL(rawURL string) (domain.PaymentSource, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return domain.PaymentSource{}, apperrors.ValidationError(msgBadAlertBoxURL).WithField("url", rawURL)
	}

	var sourceType domain.PaymentSourceType
	switch strings.ToLower(parsed.Hostname()) {
	case "payment.ecpay.com.tw":
		sourceType = domain.PaymentSourceECPay
	case "payment-stage.ecpay.com.tw":
		sourceType = domain.PaymentSourceECPayStage
	case "payment.opay.tw":
		return domain.PaymentSource{}, apperrors.ValidationError(msgOpayUnsupported)
	default:
		return domain.PaymentSource{}, apperrors.ValidationError(msgBadAlertBoxURL).WithField("url", rawURL)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) != 3 ||
		!strings.EqualFold(segments[0], "Broadcaster") ||
		!strings.EqualFold(segments[1], "AlertBox") ||
		segments[2] == "" {
		return domain.PaymentSource{}, apperrors.ValidationError(msgBadAlertBoxURL).WithField("url", rawURL)
	}

	return domain.PaymentSource{Type: sourceType, ID: segments[2]}, nil
}

func (s *Service) paymentBase(sourceType domain.PaymentSourceType) string {
	if sourceType == domain.PaymentSourceECPayStage {
		return s.config.PaymentStageBaseURL
	}
	return s.config.PaymentBaseURL
}

func (s *Service) signalrBase(sourceType domain.PaymentSourceType) string {
	if sourceType == domain.PaymentSourceECPayStage {
		return s.config.SignalRStageBaseURL
	}
	return s.config.SignalRBaseURL
}

// Connect validates the AlertBox link, scrapes its connection token, opens
// the SignalR hub and starts listening. A previous connection is replaced.
func (s *Service) Connect(ctx context.Context, rawURL string) error {
	source, err := parseAlertBoxURL(rawURL)
	if err != nil {
		return err
	}

	s.setState(domain.ConnectionConnecting)

	hub, err := s.dial(ctx, source)
	if err != nil {
		s.setState(domain.ConnectionDisconnected)
		return err
	}

	// Remember the account so the next launch can offer to reconnect.
	if err := s.store.ClearPaymentSources(); err != nil {
		slog.Warn("failed to clear stored payment sources", "error", err)
	}
	if err := s.store.AddPaymentSource(source); err != nil {
		slog.Warn("failed to store payment source", "error", err)
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.hub != nil {
		_ = s.hub.close()
	}
	listenCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.hub = hub
	s.mu.Unlock()

	s.setState(domain.ConnectionConnected)
	go s.listen(listenCtx, hub, source)
	return nil
}

// dial fetches a fresh page token and opens the hub connection.
func (s *Service) dial(ctx context.Context, source domain.PaymentSource) (*hubConn, error) {
	pageURL := s.paymentBase(source.Type) + "/Broadcaster/AlertBox/" + source.ID
	token, err := fetchToken(ctx, s.http, pageURL)
	if err != nil {
		return nil, err
	}
	return dialHub(ctx, s.dialer, s.signalrBase(source.Type), token)
}

// Disconnect stops the listener and closes the hub connection.
func (s *Service) Disconnect(context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	hub := s.hub
	s.cancel = nil
	s.hub = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if hub != nil {
		_ = hub.close()
	}
	s.setState(domain.ConnectionDisconnected)
	return nil
}

func (s *Service) listen(ctx context.Context, hub *hubConn, source domain.PaymentSource) {
	for {
		message, err := hub.next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			next, ok := s.reconnect(ctx, source)
			if !ok {
				return
			}
			s.mu.Lock()
			s.hub = next
			s.mu.Unlock()
			hub = next
			continue
		}

		if strings.EqualFold(message.Target, source.ID) {
			s.handleDonation(source, message.Arguments)
		}
	}
}

// reconnect retries the full token+dial sequence. The page token is single
// use, so a dropped connection always starts over from the AlertBox page.
func (s *Service) reconnect(ctx context.Context, source domain.PaymentSource) (*hubConn, bool) {
	s.setState(domain.ConnectionReconnecting)

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		if !s.sleep(ctx, reconnectDelay) {
			return nil, false
		}

		hub, err := s.dial(ctx, source)
		if err == nil {
			s.setState(domain.ConnectionConnected)
			return hub, true
		}
		slog.Warn("donation hub reconnect failed", "attempt", attempt, "error", err)
	}

	s.setState(domain.ConnectionDisconnected)
	return nil, false
}

// handleDonation normalizes one [nickname, price, message] invocation.
func (s *Service) handleDonation(source domain.PaymentSource, args []json.RawMessage) {
	nickname, price, text, ok := decodeDonationArgs(args)
	if !ok {
		slog.Warn("ignoring malformed donation payload", "target", source.ID)
		return
	}

	now := s.clock.Now().UnixMilli()
	event := domain.DonationEvent{
		SourceType: source.Type,
		TargetID:   source.ID,
		UniqueID:   string(source.Type) + strconv.FormatInt(now, 10),
		Nickname:   nickname,
		Price:      price,
		Message:    text,
		CreatedAt:  now,
	}

	metrics.DonationEventsTotal.WithLabelValues(string(source.Type)).Inc()

	inserted, err := s.store.RecordDonation(event.Record())
	if err != nil {
		slog.Error("failed to record donation", "uniqueId", event.UniqueID, "error", err)
		return
	}
	if inserted {
		s.publisher.Publish(domain.TopicDonationReceived, event)
	}
}

// decodeDonationArgs tolerates the price arriving as a number or a string.
func decodeDonationArgs(args []json.RawMessage) (string, *int, string, bool) {
	if len(args) < 2 {
		return "", nil, "", false
	}

	var nickname string
	if err := json.Unmarshal(args[0], &nickname); err != nil {
		return "", nil, "", false
	}

	var price *int
	var numeric int
	if err := json.Unmarshal(args[1], &numeric); err == nil {
		price = &numeric
	} else {
		var text string
		if err := json.Unmarshal(args[1], &text); err != nil {
			return "", nil, "", false
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return "", nil, "", false
		}
		price = &parsed
	}

	var text string
	if len(args) >= 3 {
		_ = json.Unmarshal(args[2], &text)
	}

	return nickname, price, text, true
}

func (s *Service) sleep(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		return false
	}
}
