package domain

// Default values applied when a field is missing from the persisted document.
const (
	DefaultAnimationTimeInMilliseconds = 10_000
	DefaultVolume                      = 50
	DefaultProgressBarTargetValue      = 87_000
)

// TemplateNodeKind discriminates the two template node shapes.
type TemplateNodeKind string

const (
	TemplateNodeText     TemplateNodeKind = "text"
	TemplateNodeVariable TemplateNodeKind = "variable"
)

// TemplateAttrs carries the variable id for variable nodes ("name" or "amount").
type TemplateAttrs struct {
	ID string `json:"id"`
}

// TemplateNode is one element of the gift announcement sentence.
type TemplateNode struct {
	Type  TemplateNodeKind `json:"type"`
	Text  string           `json:"text,omitempty"`
	Attrs *TemplateAttrs   `json:"attrs,omitempty"`
}

// DefaultAnnouncementTemplate renders as 「感謝 {name} 種了 {amount} 個貓草」.
func DefaultAnnouncementTemplate() []TemplateNode {
	return []TemplateNode{
		{Type: TemplateNodeText, Text: "感謝"},
		{Type: TemplateNodeVariable, Attrs: &TemplateAttrs{ID: "name"}},
		{Type: TemplateNodeText, Text: "種了"},
		{Type: TemplateNodeVariable, Attrs: &TemplateAttrs{ID: "amount"}},
		{Type: TemplateNodeText, Text: "個貓草"},
	}
}

// ChannelInfo is the last-resolved YouTube channel identity.
type ChannelInfo struct {
	ID     string  `json:"id"`
	Handle *string `json:"handle"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// PaymentSourceType enumerates known donation hubs.
type PaymentSourceType string

const (
	PaymentSourceECPay      PaymentSourceType = "ECPAY"
	PaymentSourceECPayStage PaymentSourceType = "ECPAY_STAGE"
	PaymentSourceOPay       PaymentSourceType = "OPAY"
	PaymentSourceUnknown    PaymentSourceType = "UNKNOWN"
)

// PaymentSource references one connectable donation hub account.
type PaymentSource struct {
	Type PaymentSourceType `json:"type"`
	ID   string            `json:"id"`
}

// DonationRecord is one entry of the donation history, unique by UniqueID.
type DonationRecord struct {
	SourceType PaymentSourceType `json:"type"`
	TargetID   string            `json:"to"`
	UniqueID   string            `json:"uniqueId"`
	Nickname   string            `json:"nickname"`
	Price      *int              `json:"price"`
	Message    string            `json:"message,omitempty"`
	CreatedAt  int64             `json:"createdAt"`
	Hidden     bool              `json:"hide"`
}

// Settings is the single user-configuration document. It is owned by the
// settings store and must only be mutated through the store's operations.
type Settings struct {
	AnimationTimeInMilliseconds int              `json:"animationTimeInMilliseconds"`
	Volume                      int              `json:"volume"`
	ChannelInfo                 *ChannelInfo     `json:"channelInfo"`
	AnnouncementTemplate        []TemplateNode   `json:"liveChatSponsorshipsGiftPurchaseAnnouncementTemplate"`
	Payments                    []PaymentSource  `json:"payments"`
	ProgressBarText             string           `json:"progressBarText"`
	ProgressBarCurrentValue     int              `json:"progressBarCurrentValue"`
	ProgressBarTargetValue      int              `json:"progressBarTargetValue"`
	Donations                   []DonationRecord `json:"tempDonations"`
}

// DefaultSettings returns a fully-populated document with default values.
func DefaultSettings() Settings {
	return Settings{
		AnimationTimeInMilliseconds: DefaultAnimationTimeInMilliseconds,
		Volume:                      DefaultVolume,
		ChannelInfo:                 nil,
		AnnouncementTemplate:        DefaultAnnouncementTemplate(),
		Payments:                    []PaymentSource{},
		ProgressBarText:             "",
		ProgressBarCurrentValue:     0,
		ProgressBarTargetValue:      DefaultProgressBarTargetValue,
		Donations:                   []DonationRecord{},
	}
}

// Clone returns a deep copy so callers can never alias the store's document.
func (s Settings) Clone() Settings {
	out := s
	if s.ChannelInfo != nil {
		info := *s.ChannelInfo
		out.ChannelInfo = &info
	}
	out.AnnouncementTemplate = make([]TemplateNode, len(s.AnnouncementTemplate))
	for i, node := range s.AnnouncementTemplate {
		out.AnnouncementTemplate[i] = node
		if node.Attrs != nil {
			attrs := *node.Attrs
			out.AnnouncementTemplate[i].Attrs = &attrs
		}
	}
	out.Payments = append([]PaymentSource(nil), s.Payments...)
	out.Donations = append([]DonationRecord(nil), s.Donations...)
	return out
}
