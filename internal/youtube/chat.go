package youtube

import (
	"strings"
	"time"
)

const defaultPollInterval = 2 * time.Second

type continuationWrapper struct {
	ReloadContinuationData *struct {
		Continuation string `json:"continuation"`
	} `json:"reloadContinuationData"`
	TimedContinuationData *struct {
		Continuation string `json:"continuation"`
		TimeoutMs    int    `json:"timeoutMs"`
	} `json:"timedContinuationData"`
	InvalidationContinuationData *struct {
		Continuation string `json:"continuation"`
		TimeoutMs    int    `json:"timeoutMs"`
	} `json:"invalidationContinuationData"`
}

// value returns the continuation token and the server-suggested poll delay.
func (c continuationWrapper) value() (string, time.Duration) {
	switch {
	case c.TimedContinuationData != nil:
		return c.TimedContinuationData.Continuation, millis(c.TimedContinuationData.TimeoutMs)
	case c.InvalidationContinuationData != nil:
		return c.InvalidationContinuationData.Continuation, millis(c.InvalidationContinuationData.TimeoutMs)
	case c.ReloadContinuationData != nil:
		return c.ReloadContinuationData.Continuation, defaultPollInterval
	}
	return "", defaultPollInterval
}

func millis(ms int) time.Duration {
	if ms <= 0 {
		return defaultPollInterval
	}
	return time.Duration(ms) * time.Millisecond
}

type nextResponse struct {
	Contents struct {
		TwoColumnWatchNextResults struct {
			ConversationBar struct {
				LiveChatRenderer struct {
					Continuations []continuationWrapper `json:"continuations"`
				} `json:"liveChatRenderer"`
			} `json:"conversationBar"`
		} `json:"twoColumnWatchNextResults"`
	} `json:"contents"`
}

func (r nextResponse) chatContinuation() string {
	for _, c := range r.Contents.TwoColumnWatchNextResults.ConversationBar.LiveChatRenderer.Continuations {
		if token, _ := c.value(); token != "" {
			return token
		}
	}
	return ""
}

type giftAnnouncement struct {
	Header struct {
		LiveChatSponsorshipsHeaderRenderer struct {
			AuthorName  simpleText `json:"authorName"`
			PrimaryText runsText   `json:"primaryText"`
		} `json:"liveChatSponsorshipsHeaderRenderer"`
	} `json:"header"`
}

type chatAction struct {
	AddChatItemAction *struct {
		Item struct {
			GiftPurchaseAnnouncement *giftAnnouncement `json:"liveChatSponsorshipsGiftPurchaseAnnouncementRenderer"`
		} `json:"item"`
	} `json:"addChatItemAction"`
}

type liveChatResponse struct {
	ContinuationContents struct {
		LiveChatContinuation struct {
			Continuations []continuationWrapper `json:"continuations"`
			Actions       []chatAction          `json:"actions"`
		} `json:"liveChatContinuation"`
	} `json:"continuationContents"`
}

func (r liveChatResponse) nextContinuation() (string, time.Duration) {
	for _, c := range r.ContinuationContents.LiveChatContinuation.Continuations {
		if token, delay := c.value(); token != "" {
			return token, delay
		}
	}
	return "", defaultPollInterval
}

// gift is one normalized membership-gift announcement.
type gift struct {
	Name   string
	Amount string
}

func (r liveChatResponse) gifts() []gift {
	var out []gift
	for _, action := range r.ContinuationContents.LiveChatContinuation.Actions {
		if action.AddChatItemAction == nil {
			continue
		}
		announcement := action.AddChatItemAction.Item.GiftPurchaseAnnouncement
		if announcement == nil {
			continue
		}

		header := announcement.Header.LiveChatSponsorshipsHeaderRenderer
		out = append(out, gift{
			Name:   header.AuthorName.SimpleText,
			Amount: giftAmount(header.PrimaryText.text()),
		})
	}
	return out
}

// giftAmount pulls the count out of the announcement sentence. Both the
// English and the Chinese phrasing put the number in the second word
// ("Gifted 5 … memberships" / "已送出 5 個…會籍").
func giftAmount(primaryText string) string {
	fields := strings.Fields(primaryText)
	if len(fields) < 2 {
		return "1"
	}
	return fields[1]
}
