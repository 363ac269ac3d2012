package sessionsdk

import (
	"net/http"
	"strings"
	"time"
)

// Token type hints accepted by Revoke and Introspect.
const (
	HintAccessToken  = "access_token"
	HintRefreshToken = "refresh_token"
)

// Client talks to a sessiond instance.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10 second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Session is an authenticated view of the client. It never refreshes the
// access token; issuance belongs to the embedding identity service.
type Session struct {
	client            *Client
	accessToken       string
	deviceFingerprint string
}

// NewSession wraps accessToken.
func (c *Client) NewSession(accessToken string) *Session {
	return &Session{client: c, accessToken: accessToken}
}

// WithDeviceFingerprint returns a copy of s that sends fp on every request.
func (s *Session) WithDeviceFingerprint(fp string) *Session {
	cp := *s
	cp.deviceFingerprint = fp
	return &cp
}
