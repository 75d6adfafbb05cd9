package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresAt  int64  `json:"access_expires_at"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}

type refreshErrorResponse struct {
	ErrorCode string `json:"error_code"`
}

// HTTPRefresher calls a JSON refresh endpoint. 4xx responses other than 429
// become [AuthError] with the endpoint's error_code; 429, 5xx, and transport
// failures surface as plain errors so the coordinator retries them.
type HTTPRefresher struct {
	url    string
	client *http.Client
}

// NewHTTPRefresher returns a refresher posting to url. A nil client gets a
// default with a 5 second timeout; pass your own to tune the per-call bound.
func NewHTTPRefresher(url string, client *http.Client) *HTTPRefresher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPRefresher{
		url:    url,
		client: client,
	}
}

// Refresh posts the refresh token and decodes the rotated pair.
func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh request encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh call: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh response read: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var out refreshResponse
		if err := json.Unmarshal(payload, &out); err != nil {
			return TokenPair{}, fmt.Errorf("refresh response decode: %w", err)
		}
		return TokenPair{
			AccessToken:      out.AccessToken,
			RefreshToken:     out.RefreshToken,
			AccessExpiresAt:  out.AccessExpiresAt,
			RefreshExpiresAt: out.RefreshExpiresAt,
		}, nil
	}

	code := ""
	var failure refreshErrorResponse
	if json.Unmarshal(payload, &failure) == nil {
		code = failure.ErrorCode
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return TokenPair{}, fmt.Errorf("refresh throttled: %s", codeOrStatus(code, resp.StatusCode))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return TokenPair{}, &AuthError{Code: codeOrStatus(code, resp.StatusCode)}
	default:
		return TokenPair{}, fmt.Errorf("refresh failed: %s", codeOrStatus(code, resp.StatusCode))
	}
}

func codeOrStatus(code string, status int) string {
	if code != "" {
		return code
	}
	return "http_" + strconv.Itoa(status)
}
