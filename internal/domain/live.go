package domain

// LiveStream is one live or upcoming broadcast on the configured channel.
type LiveStream struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
}
