package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

// RevokeHandler serves POST /v1/session/revoke following RFC 7009. Only
// refresh tokens have revocation state; access tokens expire on their own.
// Every well-formed request gets 200, known token or not, so the endpoint
// cannot be used to test whether a token is valid.
type RevokeHandler struct {
	Sessions Sessions
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, hint, ok := parseTokenForm(w, r)
	if !ok {
		return
	}

	if hint != "access_token" {
		if err := h.Sessions.Revoke(ctx, token); err != nil {
			slogx.FromContext(ctx).Warn("revoke refresh token failed", slogx.Err(err))
		}
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
