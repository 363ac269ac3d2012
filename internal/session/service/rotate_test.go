package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessionguard/internal/session/binding"
	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/internal/session/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func enableRotation(o *Options) {
	o.Rotation = RotationPolicy{Enabled: true, Threshold: 2 * time.Minute}
}

func TestRotateDisabledByDefault(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()

	pair, err := h.m.IssueTokenPair(ctx, alice, noCtx)
	require.NoError(t, err)

	h.clock.Advance(14*time.Minute + 30*time.Second)
	res, err := h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, alice, noCtx)
	require.NoError(t, err)
	require.Equal(t, domain.RotationDisabled, res.Reason)
	require.Nil(t, res.Pair)

	// Nothing was written: the refresh token is still good.
	_, err = h.m.Verify(ctx, pair.RefreshToken, domain.KindRefresh, noCtx)
	require.NoError(t, err)
}

func TestRotateNotDue(t *testing.T) {
	t.Parallel()
	h := newHarness(t, enableRotation)
	ctx := context.Background()

	pair, err := h.m.IssueTokenPair(ctx, alice, noCtx)
	require.NoError(t, err)

	res, err := h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, alice, noCtx)
	require.NoError(t, err)
	require.Equal(t, domain.RotationNotDue, res.Reason)
	require.Nil(t, res.Pair)
	require.EqualValues(t, 1, testutil.ToFloat64(h.metrics.Rotations.WithLabelValues("not_due")))
}

func TestRotateNearExpiry(t *testing.T) {
	t.Parallel()
	h := newHarness(t, enableRotation)
	ctx := context.Background()

	pair, err := h.m.IssueTokenPair(ctx, alice, noCtx)
	require.NoError(t, err)

	h.clock.Advance(14 * time.Minute)
	res, err := h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, alice, noCtx)
	require.NoError(t, err)
	require.Equal(t, domain.RotationRotated, res.Reason)
	require.NotNil(t, res.Pair)
	require.NotEqual(t, pair.RefreshToken, res.Pair.RefreshToken)

	_, err = h.m.Verify(ctx, pair.RefreshToken, domain.KindRefresh, noCtx)
	requireKind(t, err, domain.ErrorKindRevoked)

	_, err = h.m.Verify(ctx, res.Pair.RefreshToken, domain.KindRefresh, noCtx)
	require.NoError(t, err)
	claims, err := h.m.Verify(ctx, res.Pair.AccessToken, domain.KindAccess, noCtx)
	require.NoError(t, err)
	require.True(t, claims.ExpiresAt.Equal(h.clock.Now().Add(DefaultAccessTTL)))

	// The old refresh token cannot be used to rotate again.
	_, err = h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, alice, noCtx)
	requireKind(t, err, domain.ErrorKindRevoked)
}

func TestRotateExpiredAccessToken(t *testing.T) {
	t.Parallel()
	h := newHarness(t, enableRotation)
	ctx := context.Background()

	pair, err := h.m.IssueTokenPair(ctx, alice, noCtx)
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	res, err := h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, alice, noCtx)
	require.NoError(t, err)
	require.Equal(t, domain.RotationRotated, res.Reason)
}

func TestRotateRequiresMatchingSubject(t *testing.T) {
	t.Parallel()
	h := newHarness(t, enableRotation)
	ctx := context.Background()

	pair, err := h.m.IssueTokenPair(ctx, alice, noCtx)
	require.NoError(t, err)
	h.clock.Advance(14 * time.Minute)

	mallory := domain.Subject{ID: "u9"}
	_, err = h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, mallory, noCtx)
	requireKind(t, err, domain.ErrorKindInvalidSubject)

	// A failed attempt must not burn the legitimate refresh token.
	_, err = h.m.Verify(ctx, pair.RefreshToken, domain.KindRefresh, noCtx)
	require.NoError(t, err)
}

func TestRotateRejectsBadInputs(t *testing.T) {
	t.Parallel()
	h := newHarness(t, enableRotation)
	ctx := context.Background()

	pair, err := h.m.IssueTokenPair(ctx, alice, noCtx)
	require.NoError(t, err)
	h.clock.Advance(14 * time.Minute)

	_, err = h.m.RotateIfNeeded(ctx, "garbage", pair.RefreshToken, alice, noCtx)
	requireKind(t, err, domain.ErrorKindTampered)

	// Passing the refresh token where the access token belongs.
	_, err = h.m.RotateIfNeeded(ctx, pair.RefreshToken, pair.RefreshToken, alice, noCtx)
	requireKind(t, err, domain.ErrorKindWrongKind)

	_, err = h.m.RotateIfNeeded(ctx, pair.AccessToken, tamper(pair.RefreshToken), alice, noCtx)
	requireKind(t, err, domain.ErrorKindTampered)
}

func TestRotateEnforcesBinding(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(o *Options) {
		enableRotation(o)
		o.Binding = binding.Policy{IP: true}
	})
	ctx := context.Background()

	home := domain.RequestContext{SourceIP: "1.2.3.4"}
	pair, err := h.m.IssueTokenPair(ctx, alice, home)
	require.NoError(t, err)
	h.clock.Advance(14 * time.Minute)

	_, err = h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, alice, domain.RequestContext{SourceIP: "9.9.9.9"})
	requireKind(t, err, domain.ErrorKindBindingMismatch)

	res, err := h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, alice, home)
	require.NoError(t, err)
	require.Equal(t, domain.RotationRotated, res.Reason)
}

// gatedLedger holds every RevokeOne call until n callers have arrived, so
// concurrent rotations all pass verification before any of them revokes.
type gatedLedger struct {
	store.Ledger

	mu      sync.Mutex
	waiting int
	n       int
	release chan struct{}
}

func newGatedLedger(inner store.Ledger, n int) *gatedLedger {
	return &gatedLedger{Ledger: inner, n: n, release: make(chan struct{})}
}

func (g *gatedLedger) RevokeOne(ctx context.Context, hash string, at time.Time) (bool, error) {
	g.mu.Lock()
	g.waiting++
	if g.waiting == g.n {
		close(g.release)
	}
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-time.After(5 * time.Second):
	}
	return g.Ledger.RevokeOne(ctx, hash, at)
}

func TestConcurrentRotationSpendsRefreshTokenOnce(t *testing.T) {
	t.Parallel()
	gate := newGatedLedger(newSQLiteLedger(t), 2)
	h := newHarnessWithLedger(t, gate, enableRotation)
	ctx := context.Background()

	pair, err := h.m.IssueTokenPair(ctx, alice, noCtx)
	require.NoError(t, err)
	h.clock.Advance(14 * time.Minute)

	type outcome struct {
		res domain.RotationResult
		err error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, alice, noCtx)
			results <- outcome{res, err}
		}()
	}
	wg.Wait()
	close(results)

	var rotated, revoked int
	for o := range results {
		if o.err == nil {
			require.Equal(t, domain.RotationRotated, o.res.Reason)
			require.NotNil(t, o.res.Pair)
			rotated++
			continue
		}
		require.Equal(t, domain.ErrorKindRevoked, domain.KindOf(o.err), "error: %v", o.err)
		revoked++
	}
	require.Equal(t, 1, rotated)
	require.Equal(t, 1, revoked)

	sessions, err := h.m.ListSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.EqualValues(t, 1, testutil.ToFloat64(h.metrics.Rotations.WithLabelValues("rotated")))
}

// failAfterFirstInsert accepts the first ledger write and rejects the rest.
type failAfterFirstInsert struct {
	store.Ledger

	mu       sync.Mutex
	inserted bool
}

func (f *failAfterFirstInsert) InsertIfAbsent(ctx context.Context, rec domain.LedgerRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inserted {
		return false, errDiskFull
	}
	f.inserted = true
	return f.Ledger.InsertIfAbsent(ctx, rec)
}

func TestRotateIssuanceFailureLeavesOldTokenRevoked(t *testing.T) {
	t.Parallel()
	repo := &failAfterFirstInsert{Ledger: newSQLiteLedger(t)}
	h := newHarnessWithLedger(t, repo, enableRotation)
	ctx := context.Background()

	pair, err := h.m.IssueTokenPair(ctx, alice, noCtx)
	require.NoError(t, err)
	h.clock.Advance(14 * time.Minute)

	res, err := h.m.RotateIfNeeded(ctx, pair.AccessToken, pair.RefreshToken, alice, noCtx)
	requireKind(t, err, domain.ErrorKindLedgerWriteFailed)
	require.Nil(t, res.Pair)

	_, err = h.m.Verify(ctx, pair.RefreshToken, domain.KindRefresh, noCtx)
	requireKind(t, err, domain.ErrorKindRevoked)
}
