package api

import (
	"context"
	"errors"

	json "github.com/goccy/go-json"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/settings"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/version"
)

const (
	testGiftName   = "測試贊助者"
	testGiftAmount = "5"

	msgFileNotFound = "找不到此檔案"
)

// ClientCounter reports how many overlay clients are connected right now.
type ClientCounter interface {
	ClientCount() int
}

// ChatService resolves channel identities and drives the live chat listener.
type ChatService interface {
	ResolveChannel(ctx context.Context, input string) (domain.ChannelInfo, error)
	LiveStreams(ctx context.Context, channelID string) ([]domain.LiveStream, error)
	StartChat(ctx context.Context, videoID string) error
	State() domain.ConnectionState
}

// DonationService connects and disconnects the donation hub listener.
type DonationService interface {
	Connect(ctx context.Context, rawURL string) error
	Disconnect(ctx context.Context) error
	State() domain.ConnectionState
}

// Handlers holds the dependencies behind every command.
type Handlers struct {
	store     *settings.Store
	assets    *settings.Assets
	presenter domain.GiftPresenter
	publisher domain.Publisher
	counter   ClientCounter
	chat      ChatService
	donations DonationService
}

func NewHandlers(
	store *settings.Store,
	assets *settings.Assets,
	presenter domain.GiftPresenter,
	publisher domain.Publisher,
	counter ClientCounter,
	chat ChatService,
	donations DonationService,
) *Handlers {
	return &Handlers{
		store:     store,
		assets:    assets,
		presenter: presenter,
		publisher: publisher,
		counter:   counter,
		chat:      chat,
		donations: donations,
	}
}

func (h *Handlers) register(d *Dispatcher) {
	d.handlers["getSettings"] = h.getSettings
	d.handlers["getVersion"] = h.getVersion

	d.handlers["updateAnimationDuration"] = h.updateAnimationDuration
	d.handlers["updateVolume"] = h.updateVolume
	d.handlers["updateTemplate"] = h.updateTemplate

	d.handlers["updateProgressBarText"] = h.updateProgressBarText
	d.handlers["updateProgressBarCurrentValue"] = h.updateProgressBarCurrentValue
	d.handlers["updateProgressBarCurrentValueByDelta"] = h.updateProgressBarCurrentValueByDelta
	d.handlers["updateProgressBarTargetValue"] = h.updateProgressBarTargetValue

	d.handlers["updateImage"] = h.updateImage
	d.handlers["resetImage"] = h.resetImage
	d.handlers["updateSoundEffect"] = h.updateSoundEffect
	d.handlers["resetSoundEffect"] = h.resetSoundEffect

	d.handlers["getChannelInfo"] = h.getChannelInfo
	d.handlers["updateChannelInfo"] = h.updateChannelInfo
	d.handlers["removeChannelInfo"] = h.removeChannelInfo
	d.handlers["getLiveStreams"] = h.getLiveStreams
	d.handlers["startChat"] = h.startChat

	d.handlers["connectDonationSource"] = h.connectDonationSource
	d.handlers["disconnectDonationSource"] = h.disconnectDonationSource
	d.handlers["getConnectionStatus"] = h.getConnectionStatus

	d.handlers["hideDonation"] = h.hideDonation
	d.handlers["presentTestGift"] = h.presentTestGift
}

// errorResult carries a user-facing failure in-band, so control panels can
// show the message without treating the command itself as broken.
type errorResult struct {
	Error string `json:"error"`
}

// softened unwraps validation and upstream failures into an in-band result;
// everything else stays a real error.
func softened(err error) (any, error) {
	var structured *apperrors.Error
	if errors.As(err, &structured) {
		switch structured.Type {
		case apperrors.TypeValidation, apperrors.TypeExternal, apperrors.TypeNotFound:
			return errorResult{Error: structured.Message}, nil
		}
	}
	return nil, err
}

func (h *Handlers) getSettings(context.Context, json.RawMessage) (any, error) {
	return h.store.Snapshot(), nil
}

func (h *Handlers) getVersion(context.Context, json.RawMessage) (any, error) {
	return version.Get(), nil
}

type valueParams struct {
	Value float64 `json:"value"`
}

type deltaParams struct {
	Delta float64 `json:"delta"`
}

func (h *Handlers) updateAnimationDuration(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Value int `json:"value" validate:"min=1"`
	}
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.store.UpdateAnimationTime(p.Value)
}

func (h *Handlers) updateVolume(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Value int `json:"value" validate:"min=0,max=100"`
	}
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.store.UpdateVolume(p.Value)
}

func (h *Handlers) updateTemplate(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Template []domain.TemplateNode `json:"template" validate:"required"`
	}
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.store.UpdateTemplate(p.Template)
}

func (h *Handlers) updateProgressBarText(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Text string `json:"text"`
	}
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.store.UpdateProgressBarText(p.Text)
}

func (h *Handlers) updateProgressBarCurrentValue(_ context.Context, params json.RawMessage) (any, error) {
	var p valueParams
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.store.UpdateProgressBarCurrentValue(p.Value)
}

func (h *Handlers) updateProgressBarCurrentValueByDelta(_ context.Context, params json.RawMessage) (any, error) {
	var p deltaParams
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.store.UpdateProgressBarCurrentValueByDelta(p.Delta)
}

func (h *Handlers) updateProgressBarTargetValue(_ context.Context, params json.RawMessage) (any, error) {
	var p valueParams
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.store.UpdateProgressBarTargetValue(p.Value)
}

type assetParams struct {
	Path   string `json:"path" validate:"required"`
	Amount int    `json:"amount" validate:"min=1"`
}

type tierParams struct {
	Amount int `json:"amount" validate:"min=1"`
}

func (h *Handlers) updateImage(_ context.Context, params json.RawMessage) (any, error) {
	var p assetParams
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.applyAssetChange(h.assets.UpdateImage(p.Path, p.Amount))
}

func (h *Handlers) resetImage(_ context.Context, params json.RawMessage) (any, error) {
	var p tierParams
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.applyAssetChange(h.assets.ResetImage(p.Amount))
}

func (h *Handlers) updateSoundEffect(_ context.Context, params json.RawMessage) (any, error) {
	var p assetParams
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.applyAssetChange(h.assets.UpdateSoundEffect(p.Path, p.Amount))
}

func (h *Handlers) resetSoundEffect(_ context.Context, params json.RawMessage) (any, error) {
	var p tierParams
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	return h.applyAssetChange(h.assets.ResetSoundEffect(p.Amount))
}

// applyAssetChange maps asset errors to their user-facing shape and, on
// success, tells overlays to re-fetch their media.
func (h *Handlers) applyAssetChange(err error) (any, error) {
	switch {
	case errors.Is(err, domain.ErrAssetSourceNotFound):
		return errorResult{Error: msgFileNotFound}, nil
	case errors.Is(err, domain.ErrUnknownAmountTier):
		return nil, apperrors.ValidationError("unknown amount tier")
	case err != nil:
		return nil, err
	}
	h.publisher.Publish(domain.TopicUpdate, nil)
	return struct{}{}, nil
}

func (h *Handlers) getChannelInfo(context.Context, json.RawMessage) (any, error) {
	return h.store.Snapshot().ChannelInfo, nil
}

func (h *Handlers) updateChannelInfo(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Input string `json:"input" validate:"required"`
	}
	if err := bind(params, &p); err != nil {
		return nil, err
	}

	info, err := h.chat.ResolveChannel(ctx, p.Input)
	if err != nil {
		return softened(err)
	}
	return h.store.UpdateChannelInfo(info)
}

func (h *Handlers) removeChannelInfo(context.Context, json.RawMessage) (any, error) {
	if err := h.store.ClearChannelInfo(); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (h *Handlers) getLiveStreams(ctx context.Context, _ json.RawMessage) (any, error) {
	info := h.store.Snapshot().ChannelInfo
	if info == nil {
		return nil, apperrors.ValidationError("channel info is not set")
	}

	streams, err := h.chat.LiveStreams(ctx, info.ID)
	if err != nil {
		return softened(err)
	}
	return streams, nil
}

func (h *Handlers) startChat(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		VideoID string `json:"videoId" validate:"required"`
	}
	if err := bind(params, &p); err != nil {
		return nil, err
	}

	if err := h.chat.StartChat(ctx, p.VideoID); err != nil {
		return softened(err)
	}
	return struct{}{}, nil
}

func (h *Handlers) connectDonationSource(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		URL string `json:"url" validate:"required"`
	}
	if err := bind(params, &p); err != nil {
		return nil, err
	}

	if err := h.donations.Connect(ctx, p.URL); err != nil {
		return softened(err)
	}
	return nil, nil
}

func (h *Handlers) disconnectDonationSource(ctx context.Context, _ json.RawMessage) (any, error) {
	if err := h.donations.Disconnect(ctx); err != nil {
		return softened(err)
	}
	return nil, nil
}

type connectionStatus struct {
	Youtube domain.ConnectionState `json:"youtube"`
	Ecpay   domain.ConnectionState `json:"ecpay"`
}

func (h *Handlers) getConnectionStatus(context.Context, json.RawMessage) (any, error) {
	return connectionStatus{Youtube: h.chat.State(), Ecpay: h.donations.State()}, nil
}

func (h *Handlers) hideDonation(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		UniqueID string `json:"uniqueId" validate:"required"`
	}
	if err := bind(params, &p); err != nil {
		return nil, err
	}

	if err := h.store.HideDonation(p.UniqueID); err != nil {
		if errors.Is(err, domain.ErrDonationNotFound) {
			return nil, apperrors.NotFoundError("donation not found").WithField("uniqueId", p.UniqueID)
		}
		return nil, err
	}
	return struct{}{}, nil
}

type presentTestGiftResult struct {
	Opened bool `json:"opened"`
}

// presentTestGift pushes a fake gift through the real presentation pipeline so
// streamers can check the image and sound of each amount tier. Opened reports
// whether any overlay was connected to see it.
func (h *Handlers) presentTestGift(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Amount string `json:"amount"`
	}
	if err := bind(params, &p); err != nil {
		return nil, err
	}
	if p.Amount == "" {
		p.Amount = testGiftAmount
	}

	snapshot := h.store.Snapshot()
	h.presenter.Enqueue(domain.GiftEvent{
		Name:                        testGiftName,
		Amount:                      p.Amount,
		AnimationTimeInMilliseconds: snapshot.AnimationTimeInMilliseconds,
	})
	return presentTestGiftResult{Opened: h.counter.ClientCount() > 0}, nil
}
