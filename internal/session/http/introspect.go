package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
	"github.com/aussiebroadwan/sessionguard/pkg/jwtx"
)

// IntrospectionResponse is the RFC 7662 body. Inactive tokens get only
// "active": false.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	TokenType string `json:"token_type,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Jti       string `json:"jti,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
}

// IntrospectHandler serves POST /v1/session/introspect. Unlike
// service.Manager.Introspect this fully verifies the token, including the
// ledger for refresh tokens, against the caller's request context.
type IntrospectHandler struct {
	Sessions          Sessions
	TrustProxyHeaders bool
}

var tokenTypes = map[domain.Kind]string{
	domain.KindAccess:  "access_token",
	domain.KindRefresh: "refresh_token",
}

func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, hint, ok := parseTokenForm(w, r)
	if !ok {
		return
	}

	kind := introspectKind(token, hint)
	if !kind.Bindable() {
		httpx.WriteJSON(w, http.StatusOK, IntrospectionResponse{Active: false})
		return
	}

	claims, err := h.Sessions.Verify(r.Context(), token, kind, RequestContext(r, h.TrustProxyHeaders))
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, IntrospectionResponse{Active: false})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, IntrospectionResponse{
		Active:    true,
		TokenType: tokenTypes[kind],
		Sub:       claims.SubjectID,
		Email:     claims.Email,
		Role:      claims.Role,
		Jti:       claims.TokenID,
		Exp:       claims.ExpiresAt.Unix(),
		Iat:       claims.IssuedAt.Unix(),
	})
}

// introspectKind picks the single kind to verify against. The unverified
// kind claim only routes the request; Verify still checks it. Undecodable
// tokens fall back to the hint so the failure is recorded once.
func introspectKind(token, hint string) domain.Kind {
	if c, err := jwtx.DecodeUnverified(token); err == nil {
		return domain.Kind(c.Kind)
	}
	if hint == "refresh_token" {
		return domain.KindRefresh
	}
	return domain.KindAccess
}
