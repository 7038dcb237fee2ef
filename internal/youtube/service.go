package youtube

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/metrics"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/settings"
)

const (
	msgBadChannelURL = "網址格式錯誤（請確認您所輸入的網址是否正確）"

	sourceName = "youtube"

	// streamsTabParams selects the channel page's live tab in a browse call.
	streamsTabParams = "EgdzdHJlYW1z8gYECgJ6AA%3D%3D"

	pollRetryDelay  = 5 * time.Second
	maxPollFailures = 5
)

// Service is the live chat adapter: it resolves channel identities, lists
// live broadcasts and runs the chat poller that feeds the presentation queue.
type Service struct {
	client    *Client
	store     *settings.Store
	presenter domain.GiftPresenter
	publisher domain.Publisher
	clock     clockwork.Clock

	mu     sync.Mutex
	state  domain.ConnectionState
	cancel context.CancelFunc
}

func NewService(
	client *Client,
	store *settings.Store,
	presenter domain.GiftPresenter,
	publisher domain.Publisher,
	clock clockwork.Clock,
) *Service {
	if publisher == nil {
		publisher = domain.NopPublisher{}
	}
	return &Service{
		client:    client,
		store:     store,
		presenter: presenter,
		publisher: publisher,
		clock:     clock,
		state:     domain.ConnectionDisconnected,
	}
}

// State reports the chat listener's connection state.
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

// ResolveChannel turns a pasted channel URL into a channel identity.
func (s *Service) ResolveChannel(ctx context.Context, input string) (domain.ChannelInfo, error) {
	normalized, err := normalizeChannelURL(input)
	if err != nil {
		return domain.ChannelInfo{}, err
	}

	var resolved struct {
		Endpoint struct {
			BrowseEndpoint struct {
				BrowseID string `json:"browseId"`
			} `json:"browseEndpoint"`
		} `json:"endpoint"`
	}
	if err := s.client.post(ctx, endpointResolveURL, map[string]any{"url": normalized}, &resolved); err != nil {
		return domain.ChannelInfo{}, err
	}

	browseID := resolved.Endpoint.BrowseEndpoint.BrowseID
	if !strings.HasPrefix(browseID, "UC") {
		return domain.ChannelInfo{}, apperrors.ValidationError(msgBadChannelURL).WithField("input", input)
	}

	var response browseResponse
	if err := s.client.post(ctx, endpointBrowse, map[string]any{"browseId": browseID}, &response); err != nil {
		return domain.ChannelInfo{}, err
	}

	return parseChannelInfo(response)
}

// normalizeChannelURL validates the pasted text and defaults the scheme.
func normalizeChannelURL(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || !strings.Contains(parsed.Hostname(), "youtube.com") {
		return "", apperrors.ValidationError(msgBadChannelURL).WithField("input", input)
	}
	return parsed.String(), nil
}

// LiveStreams lists the channel's live broadcasts, newest first as YouTube
// returns them.
func (s *Service) LiveStreams(ctx context.Context, channelID string) ([]domain.LiveStream, error) {
	var document map[string]any
	err := s.client.post(ctx, endpointBrowse, map[string]any{
		"browseId": channelID,
		"params":   streamsTabParams,
	}, &document)
	if err != nil {
		return nil, err
	}

	return collectLiveStreams(document), nil
}

// collectLiveStreams walks the browse response for videoRenderer nodes whose
// thumbnail overlay marks them as live. The tab layout moves around between
// experiments, so the walk is structural rather than path-based.
func collectLiveStreams(node any) []domain.LiveStream {
	var out []domain.LiveStream

	switch value := node.(type) {
	case map[string]any:
		if renderer, ok := value["videoRenderer"].(map[string]any); ok {
			if stream, ok := liveStreamFromRenderer(renderer); ok {
				out = append(out, stream)
			}
		}
		for _, child := range value {
			out = append(out, collectLiveStreams(child)...)
		}
	case []any:
		for _, child := range value {
			out = append(out, collectLiveStreams(child)...)
		}
	}
	return out
}

func liveStreamFromRenderer(renderer map[string]any) (domain.LiveStream, bool) {
	if !hasLiveOverlay(renderer) {
		return domain.LiveStream{}, false
	}

	videoID, _ := renderer["videoId"].(string)
	if videoID == "" {
		return domain.LiveStream{}, false
	}

	stream := domain.LiveStream{VideoID: videoID}

	if title, ok := renderer["title"].(map[string]any); ok {
		if runs, ok := title["runs"].([]any); ok && len(runs) > 0 {
			if run, ok := runs[0].(map[string]any); ok {
				stream.Title, _ = run["text"].(string)
			}
		}
	}

	if thumbnail, ok := renderer["thumbnail"].(map[string]any); ok {
		if thumbs, ok := thumbnail["thumbnails"].([]any); ok && len(thumbs) > 0 {
			if last, ok := thumbs[len(thumbs)-1].(map[string]any); ok {
				stream.Thumbnail, _ = last["url"].(string)
			}
		}
	}

	return stream, true
}

func hasLiveOverlay(renderer map[string]any) bool {
	overlays, _ := renderer["thumbnailOverlays"].([]any)
	for _, overlay := range overlays {
		wrapper, ok := overlay.(map[string]any)
		if !ok {
			continue
		}
		status, ok := wrapper["thumbnailOverlayTimeStatusRenderer"].(map[string]any)
		if !ok {
			continue
		}
		if style, _ := status["style"].(string); style == "LIVE" {
			return true
		}
	}
	return false
}

// StartChat begins polling the live chat of one broadcast. A previous poller,
// if any, is stopped first.
func (s *Service) StartChat(ctx context.Context, videoID string) error {
	var response nextResponse
	if err := s.client.post(ctx, endpointNext, map[string]any{"videoId": videoID}, &response); err != nil {
		return err
	}

	continuation := response.chatContinuation()
	if continuation == "" {
		return apperrors.ValidationError("此影片沒有聊天室").WithField("videoId", videoID)
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.setState(domain.ConnectionConnecting)
	go s.poll(pollCtx, continuation)
	return nil
}

// Stop halts the chat poller.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.setState(domain.ConnectionDisconnected)
}

func (s *Service) poll(ctx context.Context, continuation string) {
	failures := 0

	for {
		var response liveChatResponse
		err := s.client.post(ctx, endpointGetLiveChat, map[string]any{"continuation": continuation}, &response)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if failures >= maxPollFailures {
				slog.Error("giving up on live chat", "failures", failures, "error", err)
				s.setState(domain.ConnectionDisconnected)
				return
			}
			slog.Warn("live chat poll failed", "failures", failures, "error", err)
			s.setState(domain.ConnectionReconnecting)
			if !s.sleep(ctx, pollRetryDelay) {
				return
			}
			continue
		}

		failures = 0
		s.setState(domain.ConnectionConnected)

		for _, g := range response.gifts() {
			s.handleGift(g)
		}

		next, delay := response.nextContinuation()
		if next == "" {
			// Chat is over.
			s.setState(domain.ConnectionDisconnected)
			return
		}
		continuation = next

		if !s.sleep(ctx, delay) {
			return
		}
	}
}

// handleGift snapshots the animation duration at event time and hands the
// event to the presentation queue.
func (s *Service) handleGift(g gift) {
	metrics.GiftEventsTotal.Inc()

	snapshot := s.store.Snapshot()
	s.presenter.Enqueue(domain.GiftEvent{
		Name:                        g.Name,
		Amount:                      g.Amount,
		AnimationTimeInMilliseconds: snapshot.AnimationTimeInMilliseconds,
	})
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
