package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/sessionguard/internal/session/binding"
	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/pkg/cryptox"
	"github.com/aussiebroadwan/sessionguard/pkg/jwtx"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

// Verify checks token end to end for use as expected:
//
//  1. signature, issuer, audience and time claims, against the key family
//     of expected
//  2. the signed kind equals expected
//  3. binding claims match rc (access and refresh only)
//  4. refresh only: the ledger record is active and its stored binding
//     also matches rc
//
// Every rejection is a *domain.TokenError. Storage failures during the
// ledger lookup are returned as plain errors so callers can tell an outage
// from a bad token.
func (m *Manager) Verify(ctx context.Context, token string, expected domain.Kind, rc domain.RequestContext) (domain.Claims, error) {
	if !expected.Valid() {
		return domain.Claims{}, fmt.Errorf("service: unknown token kind %q", expected)
	}

	claims, err := m.verify(ctx, strings.TrimSpace(token), expected, rc)
	if err != nil {
		m.recordFailure(ctx, expected, claims, err)
		return domain.Claims{}, err
	}

	return domain.Claims{
		SubjectID:         claims.Subject,
		Email:             claims.Email,
		Role:              claims.Role,
		Kind:              domain.Kind(claims.Kind),
		TokenID:           claims.ID,
		IssuedAt:          claims.IssuedAt.Time,
		ExpiresAt:         claims.ExpiresAt.Time,
		DeviceFingerprint: claims.DeviceFingerprint,
		SourceIP:          claims.SourceIP,
	}, nil
}

// verify returns whatever claims it managed to authenticate alongside any
// error so failures can be logged with a token id.
func (m *Manager) verify(ctx context.Context, token string, expected domain.Kind, rc domain.RequestContext) (jwtx.Claims, error) {
	claims, err := m.verifierFor(expected).Verify(token)
	if err != nil {
		return jwtx.Claims{}, domain.NewTokenError(errorKindFromJWT(err), err)
	}

	if claims.Kind != expected.String() {
		return claims, domain.NewTokenError(domain.ErrorKindWrongKind,
			fmt.Errorf("got %q, want %q", claims.Kind, expected))
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return claims, domain.NewTokenError(domain.ErrorKindTampered, errors.New("missing sub or iat"))
	}

	if expected.Bindable() {
		if err := m.opts.Binding.Check(boundOf(claims), rc); err != nil {
			return claims, domain.NewTokenError(domain.ErrorKindBindingMismatch, err)
		}
	}

	if !expected.Ledgered() {
		return claims, nil
	}

	rec, active, err := m.ledger.Lookup(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		return claims, err
	}
	if !active {
		return claims, domain.NewTokenError(domain.ErrorKindRevoked, nil)
	}
	if rec.OwnerID != claims.Subject {
		return claims, domain.NewTokenError(domain.ErrorKindTampered, errors.New("ledger owner disagrees with token subject"))
	}

	stored := binding.Bound{DeviceFingerprint: rec.DeviceFingerprint, SourceIP: rec.SourceIP}
	if err := m.opts.Binding.Check(stored, rc); err != nil {
		return claims, domain.NewTokenError(domain.ErrorKindBindingMismatch, err)
	}

	return claims, nil
}

func (m *Manager) recordFailure(ctx context.Context, expected domain.Kind, claims jwtx.Claims, err error) {
	kind := domain.KindOf(err)
	label := string(kind)
	if kind == domain.ErrorKindNone {
		label = "internal"
	}
	m.metrics.VerifyFailures.WithLabelValues(expected.String(), label).Inc()

	attrs := []any{
		slog.String("kind", expected.String()),
		slog.String("error_kind", label),
		slogx.Err(err),
	}
	if claims.ID != "" {
		attrs = append(attrs, slog.String("token_id", claims.ID))
	}

	l := slogx.FromContext(ctx)
	if kind == domain.ErrorKindNone {
		l.Error("token verification failed", attrs...)
		return
	}
	l.Warn("token rejected", attrs...)
}
