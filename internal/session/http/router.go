package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sessions is the part of service.Manager the HTTP surface needs.
type Sessions interface {
	Verify(ctx context.Context, token string, expected domain.Kind, rc domain.RequestContext) (domain.Claims, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, subjectID string) (int64, error)
	ListSessions(ctx context.Context, subjectID string) ([]domain.LedgerRecord, error)
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries the router's dependencies.
type RouterConfig struct {
	Sessions     Sessions
	Store        Pinger
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
	BuildVersion string

	// TrustProxyHeaders makes X-Forwarded-For / X-Real-IP the source IP for
	// binding and rate limiting. Only enable behind a proxy that sets them.
	TrustProxyHeaders bool

	Limits Limits
}

// Limits are the rate limit profiles per endpoint class.
type Limits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

// DefaultLimits returns the httpx profiles.
func DefaultLimits() Limits {
	return Limits{Strict: httpx.StrictLimit, Moderate: httpx.ModerateLimit, Public: httpx.PublicLimit}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       RouterConfig
	startTime time.Time
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}

	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		startTime: time.Now(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(cfg.Logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) rateLimit(cfg httpx.RateLimitConfig) httpx.Middleware {
	return httpx.RateLimitByIP(cfg, r.cfg.TrustProxyHeaders)
}

func (r *Router) registerSession() {
	authn := Authenticate(r.cfg.Sessions, r.cfg.TrustProxyHeaders)

	// Revocation needs no authentication: possession of the token is
	// enough, and RFC 7009 answers 200 regardless.
	r.Mux.Handle("POST /v1/session/revoke",
		httpx.Chain(&RevokeHandler{Sessions: r.cfg.Sessions},
			r.rateLimit(r.cfg.Limits.Moderate),
		),
	)

	r.Mux.Handle("POST /v1/session/introspect",
		httpx.Chain(&IntrospectHandler{Sessions: r.cfg.Sessions, TrustProxyHeaders: r.cfg.TrustProxyHeaders},
			r.rateLimit(r.cfg.Limits.Moderate),
			authn,
		),
	)

	// Devices sharing one NAT address get their own logout-all budget.
	r.Mux.Handle("POST /v1/session/logout-all",
		httpx.Chain(&LogoutAllHandler{Sessions: r.cfg.Sessions},
			httpx.RateLimitMiddleware(r.cfg.Limits.Strict, httpx.CompositeKeyExtractor("|",
				httpx.IPKeyExtractor(r.cfg.TrustProxyHeaders),
				httpx.HeaderKeyExtractor(DeviceFingerprintHeader),
			)),
			authn,
		),
	)

	r.Mux.Handle("GET /v1/session/sessions",
		httpx.Chain(&SessionsHandler{Sessions: r.cfg.Sessions},
			r.rateLimit(r.cfg.Limits.Moderate),
			authn,
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.cfg.BuildVersion),
			r.rateLimit(r.cfg.Limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.cfg.Store),
			r.rateLimit(r.cfg.Limits.Public),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.cfg.Gatherer, promhttp.HandlerOpts{}))
}
