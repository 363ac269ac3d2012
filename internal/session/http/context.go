package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
)

// DeviceFingerprintHeader carries the client's device fingerprint.
const DeviceFingerprintHeader = "X-Device-Fingerprint"

type ctxKey struct{}

// RequestContext extracts the binding attributes of r.
func RequestContext(r *http.Request, trustProxy bool) domain.RequestContext {
	return domain.RequestContext{
		DeviceFingerprint: strings.TrimSpace(r.Header.Get(DeviceFingerprintHeader)),
		SourceIP:          httpx.ClientIP(r, trustProxy),
	}
}

func withClaims(ctx context.Context, c domain.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// ClaimsFromContext returns the verified access token claims placed by
// Authenticate.
func ClaimsFromContext(ctx context.Context) (domain.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(domain.Claims)
	return c, ok
}
