package youtube

import (
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/domain"
	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
)

// YouTube ships (at least) two channel page header layouts and switches
// between them server-side. Both are supported; anything else is reported
// with the raw header keys so users can file an actionable bug.
const msgUnknownHeader = "無法辨識頻道頁面的格式，請回報此問題"

type simpleText struct {
	SimpleText string `json:"simpleText"`
}

type runsText struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (r runsText) text() string {
	if r.SimpleText != "" {
		return r.SimpleText
	}
	var b strings.Builder
	for _, run := range r.Runs {
		b.WriteString(run.Text)
	}
	return b.String()
}

type thumbnailSet struct {
	Thumbnails []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"thumbnails"`
}

// largest returns the biggest thumbnail URL, or nil when none exist.
func (t thumbnailSet) largest() *string {
	best := -1
	var url string
	for _, thumb := range t.Thumbnails {
		if thumb.Width > best {
			best = thumb.Width
			url = thumb.URL
		}
	}
	if url == "" {
		return nil
	}
	return &url
}

type c4TabbedHeader struct {
	ChannelID         string       `json:"channelId"`
	Title             string       `json:"title"`
	ChannelHandleText runsText     `json:"channelHandleText"`
	Avatar            thumbnailSet `json:"avatar"`
}

type pageHeader struct {
	PageTitle string `json:"pageTitle"`
}

type channelMetadata struct {
	ExternalID       string       `json:"externalId"`
	Title            string       `json:"title"`
	VanityChannelURL string       `json:"vanityChannelUrl"`
	Avatar           thumbnailSet `json:"avatar"`
}

type browseResponse struct {
	Header   map[string]json.RawMessage `json:"header"`
	Metadata struct {
		ChannelMetadataRenderer *channelMetadata `json:"channelMetadataRenderer"`
	} `json:"metadata"`
}

// parseChannelInfo extracts the channel identity from a browse response,
// handling both known header layouts.
func parseChannelInfo(response browseResponse) (domain.ChannelInfo, error) {
	if raw, ok := response.Header["c4TabbedHeaderRenderer"]; ok {
		var header c4TabbedHeader
		if err := json.Unmarshal(raw, &header); err != nil {
			return domain.ChannelInfo{}, apperrors.ExternalError("failed to decode channel header", err)
		}

		info := domain.ChannelInfo{
			ID:     header.ChannelID,
			Name:   header.Title,
			Avatar: header.Avatar.largest(),
		}
		if handle := header.ChannelHandleText.text(); handle != "" {
			info.Handle = &handle
		}
		return info, nil
	}

	if raw, ok := response.Header["pageHeaderRenderer"]; ok {
		var header pageHeader
		if err := json.Unmarshal(raw, &header); err != nil {
			return domain.ChannelInfo{}, apperrors.ExternalError("failed to decode channel header", err)
		}

		// The new layout keeps id, handle and avatar out of the header; the
		// channel metadata carries them instead.
		meta := response.Metadata.ChannelMetadataRenderer
		if meta == nil {
			return domain.ChannelInfo{}, apperrors.ExternalError(msgUnknownHeader, nil).
				WithField("header", "pageHeaderRenderer").
				WithField("missing", "channelMetadataRenderer")
		}

		info := domain.ChannelInfo{
			ID:     meta.ExternalID,
			Name:   header.PageTitle,
			Avatar: meta.Avatar.largest(),
		}
		if info.Name == "" {
			info.Name = meta.Title
		}
		if handle := handleFromVanityURL(meta.VanityChannelURL); handle != "" {
			info.Handle = &handle
		}
		return info, nil
	}

	keys := make([]string, 0, len(response.Header))
	for key := range response.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return domain.ChannelInfo{}, apperrors.ExternalError(msgUnknownHeader, nil).
		WithField("headerKeys", strings.Join(keys, ","))
}

// handleFromVanityURL turns "http://www.youtube.com/@somebody" into "@somebody".
func handleFromVanityURL(vanity string) string {
	if vanity == "" {
		return ""
	}
	idx := strings.LastIndex(vanity, "/")
	tail := vanity[idx+1:]
	if strings.HasPrefix(tail, "@") {
		return tail
	}
	return ""
}
