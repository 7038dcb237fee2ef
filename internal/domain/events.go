package domain

// GiftEvent is a normalized membership-gift occurrence from the live chat.
// AnimationTimeInMilliseconds is snapshotted from the settings document at the
// moment the event is observed, so a later settings change never affects an
// already-queued presentation.
type GiftEvent struct {
	Name                        string `json:"name"`
	Amount                      string `json:"amount"`
	AnimationTimeInMilliseconds int    `json:"animationTimeInMilliseconds"`
}

// DonationEvent is a normalized monetary donation from a payment hub.
type DonationEvent struct {
	SourceType PaymentSourceType `json:"type"`
	TargetID   string            `json:"to"`
	UniqueID   string            `json:"uniqueId"`
	Nickname   string            `json:"nickname"`
	Price      *int              `json:"price"`
	Message    string            `json:"message,omitempty"`
	CreatedAt  int64             `json:"createdAt"`
}

// Record converts the event into a history entry for the settings document.
func (e DonationEvent) Record() DonationRecord {
	return DonationRecord{
		SourceType: e.SourceType,
		TargetID:   e.TargetID,
		UniqueID:   e.UniqueID,
		Nickname:   e.Nickname,
		Price:      e.Price,
		Message:    e.Message,
		CreatedAt:  e.CreatedAt,
	}
}
