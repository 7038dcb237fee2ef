package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/settings"
)

// fakeInnertube serves canned responses per endpoint; a list of responses for
// one endpoint is served in order, sticking on the last.
type fakeInnertube struct {
	mu        sync.Mutex
	responses map[string][]string
	calls     map[string]int
}

func newFakeInnertube(responses map[string][]string) *fakeInnertube {
	return &fakeInnertube{responses: responses, calls: make(map[string]int)}
}

func (f *fakeInnertube) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/youtubei/v1/")

		f.mu.Lock()
		list, ok := f.responses[endpoint]
		index := min(f.calls[endpoint], len(list)-1)
		f.calls[endpoint]++
		f.mu.Unlock()

		if !ok || len(list) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(list[index]))
	})
}

type safePresenter struct {
	mu     sync.Mutex
	events []domain.GiftEvent
}

func (p *safePresenter) Enqueue(event domain.GiftEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *safePresenter) all() []domain.GiftEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.GiftEvent(nil), p.events...)
}

type statePublisher struct {
	mu     sync.Mutex
	states []domain.ConnectionState
}

func (p *statePublisher) Publish(topic domain.Topic, payload any) {
	if topic != domain.TopicConnectionStateChanged {
		return
	}
	change := payload.(domain.ConnectionStateChange)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, change.State)
}

func (p *statePublisher) last() domain.ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return ""
	}
	return p.states[len(p.states)-1]
}

func newTestService(t *testing.T, fake *fakeInnertube) (*Service, *safePresenter, *statePublisher) {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	store := settings.NewStore(t.TempDir(), nil)
	require.NoError(t, store.Load())

	presenter := &safePresenter{}
	publisher := &statePublisher{}
	service := NewService(NewClient(server.URL, nil), store, presenter, publisher, clockwork.NewRealClock())
	t.Cleanup(service.Stop)
	return service, presenter, publisher
}

func TestResolveChannel(t *testing.T) {
	fake := newFakeInnertube(map[string][]string{
		"navigation/resolve_url": {`{"endpoint":{"browseEndpoint":{"browseId":"UC123"}}}`},
		"browse": {`{"header":{"c4TabbedHeaderRenderer":{
			"channelId":"UC123","title":"貓草頻道",
			"channelHandleText":{"runs":[{"text":"@catgrass"}]},
			"avatar":{"thumbnails":[{"url":"https://example.com/a.jpg","width":176}]}}}}`},
	})
	service, _, _ := newTestService(t, fake)

	info, err := service.ResolveChannel(context.Background(), "https://www.youtube.com/@catgrass")
	require.NoError(t, err)
	assert.Equal(t, "UC123", info.ID)
	assert.Equal(t, "貓草頻道", info.Name)
}

func TestResolveChannelRejectsForeignHost(t *testing.T) {
	service, _, _ := newTestService(t, newFakeInnertube(nil))

	_, err := service.ResolveChannel(context.Background(), "https://example.com/@whoever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), msgBadChannelURL)
}

func TestResolveChannelRejectsNonChannelURL(t *testing.T) {
	fake := newFakeInnertube(map[string][]string{
		"navigation/resolve_url": {`{"endpoint":{"watchEndpoint":{"videoId":"abc"}}}`},
	})
	service, _, _ := newTestService(t, fake)

	_, err := service.ResolveChannel(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), msgBadChannelURL)
}

func TestLiveStreams(t *testing.T) {
	fake := newFakeInnertube(map[string][]string{
		"browse": {`{"contents":{"tabs":[{"content":{"items":[
			{"videoRenderer":{
				"videoId":"live1",
				"title":{"runs":[{"text":"週五雜談"}]},
				"thumbnail":{"thumbnails":[{"url":"https://example.com/t1.jpg"}]},
				"thumbnailOverlays":[{"thumbnailOverlayTimeStatusRenderer":{"style":"LIVE"}}]}},
			{"videoRenderer":{
				"videoId":"vod1",
				"title":{"runs":[{"text":"上週存檔"}]},
				"thumbnailOverlays":[{"thumbnailOverlayTimeStatusRenderer":{"style":"DEFAULT"}}]}}
		]}}]}}`},
	})
	service, _, _ := newTestService(t, fake)

	streams, err := service.LiveStreams(context.Background(), "UC123")
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "live1", streams[0].VideoID)
	assert.Equal(t, "週五雜談", streams[0].Title)
	assert.Equal(t, "https://example.com/t1.jpg", streams[0].Thumbnail)
}

func TestStartChatRequiresLiveChat(t *testing.T) {
	fake := newFakeInnertube(map[string][]string{
		"next": {`{"contents":{}}`},
	})
	service, _, _ := newTestService(t, fake)

	err := service.StartChat(context.Background(), "vod1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "此影片沒有聊天室")
}

func TestChatPollerEnqueuesGifts(t *testing.T) {
	fake := newFakeInnertube(map[string][]string{
		"next": {`{"contents":{"twoColumnWatchNextResults":{"conversationBar":{"liveChatRenderer":{
			"continuations":[{"reloadContinuationData":{"continuation":"tok1"}}]}}}}}`},
		"live_chat/get_live_chat": {
			`{"continuationContents":{"liveChatContinuation":{
				"continuations":[{"timedContinuationData":{"continuation":"tok2","timeoutMs":10}}],
				"actions":[
					{"addChatItemAction":{"item":{"liveChatTextMessageRenderer":{}}}},
					{"addChatItemAction":{"item":{"liveChatSponsorshipsGiftPurchaseAnnouncementRenderer":{
						"header":{"liveChatSponsorshipsHeaderRenderer":{
							"authorName":{"simpleText":"大戶人家"},
							"primaryText":{"runs":[{"text":"已送出 "},{"text":"5"},{"text":" 個「貓草頻道」的會籍"}]}}}}}}}
				]}}}`,
			`{"continuationContents":{"liveChatContinuation":{}}}`,
		},
	})
	service, presenter, publisher := newTestService(t, fake)

	require.NoError(t, service.StartChat(context.Background(), "live1"))

	require.Eventually(t, func() bool {
		return publisher.last() == domain.ConnectionDisconnected
	}, 5*time.Second, 10*time.Millisecond)

	events := presenter.all()
	require.Len(t, events, 1)
	assert.Equal(t, "大戶人家", events[0].Name)
	assert.Equal(t, "5", events[0].Amount)
	assert.Equal(t, domain.DefaultAnimationTimeInMilliseconds, events[0].AnimationTimeInMilliseconds)
}
