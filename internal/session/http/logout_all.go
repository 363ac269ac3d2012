package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

// LogoutAllHandler serves POST /v1/session/logout-all: revoke every refresh
// token of the authenticated subject.
type LogoutAllHandler struct {
	Sessions Sessions
}

type logoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

func (h *LogoutAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		httpx.WriteBearerError(w, invalidSession)
		return
	}

	n, err := h.Sessions.RevokeAll(ctx, claims.SubjectID)
	if err != nil {
		slogx.FromContext(ctx).Error("logout-all failed", slogx.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, logoutAllResponse{Revoked: n})
}
