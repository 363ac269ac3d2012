package sessionsdk_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessionguard/internal/session/binding"
	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	sessionhttp "github.com/aussiebroadwan/sessionguard/internal/session/http"
	"github.com/aussiebroadwan/sessionguard/internal/session/service"
	"github.com/aussiebroadwan/sessionguard/internal/session/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessionguard/pkg/jwtx"
	"github.com/aussiebroadwan/sessionguard/pkg/sessionsdk"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// startService runs the real router over a temp-dir SQLite ledger.
func startService(t *testing.T, policy binding.Policy, pinger sessionhttp.Pinger) (*sessionsdk.Client, *service.Manager) {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	accessRing, err := jwtx.NewKeyring([]byte(strings.Repeat("A", 32)))
	require.NoError(t, err)
	refreshRing, err := jwtx.NewKeyring([]byte(strings.Repeat("R", 32)))
	require.NoError(t, err)

	m, err := service.NewManager(service.Options{
		Issuer:      "sessionguard-e2e",
		AccessKeys:  accessRing,
		RefreshKeys: refreshRing,
		Binding:     policy,
	}, st.Ledger())
	require.NoError(t, err)

	if pinger == nil {
		pinger = st
	}
	router := sessionhttp.NewRouter(sessionhttp.RouterConfig{
		Sessions:     m,
		Store:        pinger,
		Logger:       slogx.Discard(),
		BuildVersion: "e2e",
	})
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return sessionsdk.NewClient(srv.URL + "/"), m
}

func TestHealth(t *testing.T) {
	t.Parallel()
	client, _ := startService(t, binding.Policy{}, nil)

	live, err := client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "e2e", live.Version)

	ready, err := client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Database)
}

func TestReadinessDegraded(t *testing.T) {
	t.Parallel()
	client, _ := startService(t, binding.Policy{}, stubPinger{err: errors.New("down")})

	_, err := client.GetReadiness(t.Context())
	var apiErr *sessionsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 503, apiErr.StatusCode)
}

func TestRevokeAndIntrospect(t *testing.T) {
	t.Parallel()
	client, m := startService(t, binding.Policy{}, nil)
	ctx := t.Context()
	subject := domain.Subject{ID: "user-1", Email: "user@example.com", Role: "admin"}

	pair, err := m.IssueTokenPair(ctx, subject, domain.RequestContext{})
	require.NoError(t, err)
	session := client.NewSession(pair.AccessToken)

	info, err := session.Introspect(ctx, pair.AccessToken, "")
	require.NoError(t, err)
	require.True(t, info.Active)
	require.Equal(t, sessionsdk.HintAccessToken, info.TokenType)
	require.Equal(t, "admin", info.Role)

	info, err = session.Introspect(ctx, pair.RefreshToken, sessionsdk.HintRefreshToken)
	require.NoError(t, err)
	require.True(t, info.Active)
	require.Empty(t, info.Role)

	require.NoError(t, client.Revoke(ctx, pair.RefreshToken, sessionsdk.HintRefreshToken))
	require.NoError(t, client.Revoke(ctx, pair.RefreshToken, ""), "revoking twice succeeds")
	require.NoError(t, client.Revoke(ctx, "never-issued", ""))

	info, err = session.Introspect(ctx, pair.RefreshToken, sessionsdk.HintRefreshToken)
	require.NoError(t, err)
	require.False(t, info.Active)
	require.Empty(t, info.Sub)

	err = client.Revoke(ctx, "", "")
	var apiErr *sessionsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, sessionsdk.ErrorCodeInvalidRequest, apiErr.Code)
}

func TestLogoutAll(t *testing.T) {
	t.Parallel()
	client, m := startService(t, binding.Policy{}, nil)
	ctx := t.Context()
	subject := domain.Subject{ID: "user-2"}

	var last *domain.TokenPair
	for range 2 {
		p, err := m.IssueTokenPair(ctx, subject, domain.RequestContext{})
		require.NoError(t, err)
		last = p
	}
	session := client.NewSession(last.AccessToken)

	sessions, err := session.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.False(t, sessions[0].CreatedAt.Before(sessions[1].CreatedAt), "newest first")

	n, err := session.LogoutAll(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	sessions, err = session.ListSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, sessions)

	_, err = m.Verify(ctx, last.RefreshToken, domain.KindRefresh, domain.RequestContext{})
	require.ErrorIs(t, err, domain.ErrRevoked)
}

func TestInvalidBearer(t *testing.T) {
	t.Parallel()
	client, _ := startService(t, binding.Policy{}, nil)

	_, err := client.NewSession("garbage").ListSessions(t.Context())
	require.True(t, sessionsdk.IsInvalidToken(err))
}

func TestDeviceBoundSession(t *testing.T) {
	t.Parallel()
	client, m := startService(t, binding.Policy{Device: true}, nil)
	ctx := t.Context()

	pair, err := m.IssueTokenPair(ctx, domain.Subject{ID: "user-3"}, domain.RequestContext{DeviceFingerprint: "fp-1"})
	require.NoError(t, err)

	_, err = client.NewSession(pair.AccessToken).ListSessions(ctx)
	require.True(t, sessionsdk.IsInvalidToken(err), "fingerprint missing")

	_, err = client.NewSession(pair.AccessToken).WithDeviceFingerprint("fp-2").ListSessions(ctx)
	require.True(t, sessionsdk.IsInvalidToken(err), "fingerprint differs")

	sessions, err := client.NewSession(pair.AccessToken).WithDeviceFingerprint("fp-1").ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "fp-1", sessions[0].DeviceFingerprint)
}
