package sessionsdk

import (
	"context"
	"net/http"
)

// Revoke asks the service to revoke token. Per RFC 7009 it succeeds for
// unknown and already revoked tokens.
func (c *Client) Revoke(ctx context.Context, token, hint string) error {
	body, headers := tokenForm(token, hint)
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/session/revoke", body, headers)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// Introspect fully verifies token on the service. A token that fails any
// check comes back with Active=false rather than an error.
func (s *Session) Introspect(ctx context.Context, token, hint string) (*IntrospectionResponse, error) {
	body, headers := tokenForm(token, hint)
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/session/introspect", body, headers)
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogoutAll revokes every refresh token of the session's subject and
// returns how many were revoked.
func (s *Session) LogoutAll(ctx context.Context) (int64, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/session/logout-all", nil, nil)
	if err != nil {
		return 0, err
	}

	var out struct {
		Revoked int64 `json:"revoked"`
	}
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Revoked, nil
}

// ListSessions returns the subject's active refresh tokens, newest first.
func (s *Session) ListSessions(ctx context.Context) ([]ActiveSession, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/session/sessions", nil, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Sessions []ActiveSession `json:"sessions"`
	}
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}
