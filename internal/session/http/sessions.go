package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

// SessionsHandler serves GET /v1/session/sessions: the authenticated
// subject's active refresh tokens.
type SessionsHandler struct {
	Sessions Sessions
}

type sessionView struct {
	TokenID           string    `json:"token_id"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	DeviceFingerprint string    `json:"device_fingerprint,omitempty"`
	SourceIP          string    `json:"source_ip,omitempty"`
}

type sessionsResponse struct {
	Sessions []sessionView `json:"sessions"`
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		httpx.WriteBearerError(w, invalidSession)
		return
	}

	recs, err := h.Sessions.ListSessions(ctx, claims.SubjectID)
	if err != nil {
		slogx.FromContext(ctx).Error("list sessions failed", slogx.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	resp := sessionsResponse{Sessions: make([]sessionView, 0, len(recs))}
	for _, rec := range recs {
		resp.Sessions = append(resp.Sessions, sessionView{
			TokenID:           rec.TokenID,
			CreatedAt:         rec.CreatedAt,
			ExpiresAt:         rec.ExpiresAt,
			DeviceFingerprint: rec.DeviceFingerprint,
			SourceIP:          rec.SourceIP,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
