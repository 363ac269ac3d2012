package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
)

// maxFormBytes bounds request bodies; a token is a few hundred bytes.
const maxFormBytes = 16 << 10

// parseTokenForm reads the RFC 7009 / 7662 style form body and returns the
// token and its type hint. It writes the error response itself and reports
// false when the request is unusable.
func parseTokenForm(w http.ResponseWriter, r *http.Request) (token, hint string, ok bool) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "content type must be application/x-www-form-urlencoded")
		return "", "", false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return "", "", false
	}

	token = strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return "", "", false
	}
	return token, r.PostForm.Get("token_type_hint"), true
}
