package ecpay

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"

	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
)

const (
	msgBrokenLink = "連結錯誤"
	msgNoToken    = "無法取得連線 token"
)

// jwtPattern matches a JWT embedded anywhere in the AlertBox page source.
var jwtPattern = regexp.MustCompile(`e[yw][A-Za-z0-9-_]+\.(?:e[yw][A-Za-z0-9-_]+)?\.[A-Za-z0-9-_]{2,}(?:(?:\.[A-Za-z0-9-_]{2,}){2})?`)

// fetchToken loads the AlertBox page and extracts the connection token.
// ECPay serves a page containing the text 連結錯誤 for revoked or mistyped
// AlertBox links instead of an error status code.
func fetchToken(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", apperrors.InternalError("failed to build AlertBox request", err)
	}

	response, err := client.Do(request)
	if err != nil {
		return "", apperrors.ExternalError(msgNoToken, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", apperrors.ExternalError(msgNoToken, err)
	}

	page := string(body)
	if response.StatusCode != http.StatusOK || strings.Contains(page, msgBrokenLink) {
		return "", apperrors.ValidationError(msgBrokenLink).WithField("url", pageURL)
	}

	token := jwtPattern.FindString(page)
	if token == "" {
		return "", apperrors.ExternalError(msgNoToken, nil).WithField("url", pageURL)
	}
	return token, nil
}
