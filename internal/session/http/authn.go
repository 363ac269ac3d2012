package http

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

// invalidSession is the only failure description clients ever see; which
// check failed stays in the logs.
const invalidSession = "invalid session"

// Authenticate requires a valid access token bound to the request.
func Authenticate(s Sessions, trustProxy bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := httpx.BearerToken(r)
			if !ok {
				httpx.WriteBearerError(w, invalidSession)
				return
			}

			claims, err := s.Verify(ctx, raw, domain.KindAccess, RequestContext(r, trustProxy))
			if err != nil {
				if domain.KindOf(err) == domain.ErrorKindNone {
					slogx.FromContext(ctx).Error("access token verification errored", slogx.Err(err))
					httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
					return
				}
				httpx.WriteBearerError(w, invalidSession)
				return
			}

			ctx = slogx.With(ctx, slog.String("subject_id", claims.SubjectID))
			next.ServeHTTP(w, r.WithContext(withClaims(ctx, claims)))
		})
	}
}
