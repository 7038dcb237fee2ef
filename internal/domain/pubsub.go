package domain

// Topic names one push channel fanned out to every connected overlay client.
type Topic string

const (
	// TopicOpen reveals the gift announcement overlay with a GiftEvent payload.
	TopicOpen Topic = "open"
	// TopicClose hides the gift announcement overlay again.
	TopicClose Topic = "close"
	// TopicUpdate tells overlays to cache-bust their media assets.
	TopicUpdate Topic = "update"

	TopicTemplateUpdated        Topic = "template-updated"
	TopicChannelUpdated         Topic = "channel-updated"
	TopicProgressBarUpdated     Topic = "progress-bar-updated"
	TopicDonationListUpdated    Topic = "donation-list-updated"
	TopicDonationReceived       Topic = "donation-received"
	TopicConnectionStateChanged Topic = "connection-state-changed"
)

// Publisher fans a payload out to zero or more subscribed clients.
// Publishing with no subscribers is a no-op, never an error; delivery is
// fire-and-forget and gives no cross-client ordering guarantee.
type Publisher interface {
	Publish(topic Topic, payload any)
}

// NopPublisher discards every publish. Useful as a default and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(Topic, any) {}
