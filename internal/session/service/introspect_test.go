package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessionguard/internal/session/binding"
	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/stretchr/testify/require"
)

func TestIntrospect(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(o *Options) { o.Binding = binding.Policy{Device: true} })
	ctx := context.Background()

	rc := domain.RequestContext{DeviceFingerprint: "laptop"}
	issued, err := h.m.Issue(ctx, domain.KindAccess, alice, rc)
	require.NoError(t, err)

	md, err := h.m.Introspect(issued.Token)
	require.NoError(t, err)
	require.Equal(t, "access", md.Kind)
	require.Equal(t, "u1", md.SubjectID)
	require.Equal(t, "alice@example.com", md.Email)
	require.Equal(t, "admin", md.Role)
	require.Equal(t, issued.TokenID, md.TokenID)
	require.Equal(t, "sessionguard-test", md.Issuer)
	require.Equal(t, []string{"web"}, md.Audience)
	require.NotEmpty(t, md.KeyID)
	require.True(t, md.DeviceBound)
	require.False(t, md.IPBound)
	require.False(t, md.Expired)
	require.True(t, md.ExpiresAt.Equal(issued.ExpiresAt))

	h.clock.Advance(time.Hour)
	md, err = h.m.Introspect(issued.Token)
	require.NoError(t, err)
	require.True(t, md.Expired)
}

func TestIntrospectDoesNotVerify(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	issued, err := h.m.Issue(context.Background(), domain.KindRefresh, alice, noCtx)
	require.NoError(t, err)

	// A broken signature still decodes; that is the whole point of the
	// distinction from Verify.
	md, err := h.m.Introspect(tamper(issued.Token))
	require.NoError(t, err)
	require.Equal(t, "refresh", md.Kind)

	_, err = h.m.Introspect("garbage")
	requireKind(t, err, domain.ErrorKindTampered)
}
