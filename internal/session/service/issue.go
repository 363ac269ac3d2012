package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/internal/session/ledger"
	"github.com/aussiebroadwan/sessionguard/pkg/cryptox"
	"github.com/aussiebroadwan/sessionguard/pkg/jwtx"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

// Issue signs a new token of kind for subject.
//
// Access and refresh tokens get the binding claims the policy requires from
// rc. Verification and reset tokens carry the subject and email only.
// Refresh tokens are recorded in the ledger before they are returned; if the
// write fails no token is returned and the error has kind
// ErrorKindLedgerWriteFailed.
func (m *Manager) Issue(ctx context.Context, kind domain.Kind, subject domain.Subject, rc domain.RequestContext) (domain.IssuedToken, error) {
	if !kind.Valid() {
		return domain.IssuedToken{}, fmt.Errorf("service: unknown token kind %q", kind)
	}
	subject.ID = strings.TrimSpace(subject.ID)
	if subject.ID == "" {
		return domain.IssuedToken{}, domain.NewTokenError(domain.ErrorKindInvalidSubject, nil)
	}

	now := m.now()
	params := jwtx.ClaimsParams{
		Subject: subject.ID,
		TokenID: m.newTokenID(),
		Kind:    kind.String(),
		Issuer:  m.opts.Issuer,
		TTL:     m.opts.ttl(kind),
		Now:     now,
	}
	if m.opts.Audience != "" {
		params.Audience = []string{m.opts.Audience}
	}
	if kind != domain.KindRefresh {
		params.Email = subject.Email
	}
	if kind == domain.KindAccess {
		params.Role = subject.Role
	}

	if kind.Bindable() {
		bound, err := m.opts.Binding.Embed(rc)
		if err != nil {
			return domain.IssuedToken{}, domain.NewTokenError(domain.ErrorKindBindingMismatch, err)
		}
		params.DeviceFingerprint = bound.DeviceFingerprint
		params.SourceIP = bound.SourceIP
	}

	claims := jwtx.NewClaims(params)
	token, err := m.signerFor(kind).Sign(claims)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("service: sign %s token: %w", kind, err)
	}

	l := slogx.FromContext(ctx)

	if kind.Ledgered() {
		err := m.ledger.Record(ctx, ledger.Entry{
			TokenHash: cryptox.FingerprintToken(token),
			TokenID:   params.TokenID,
			OwnerID:   subject.ID,
			Binding:   boundOf(claims),
			ExpiresAt: claims.ExpiresAt.Time,
		})
		if err != nil {
			l.Error("refresh token ledger write failed",
				slog.String("subject_id", subject.ID),
				slog.String("token_id", params.TokenID),
				slogx.Err(err),
			)
			return domain.IssuedToken{}, domain.NewTokenError(domain.ErrorKindLedgerWriteFailed, err)
		}
	}

	m.metrics.Issued.WithLabelValues(kind.String()).Inc()
	l.Debug("token issued",
		slog.String("kind", kind.String()),
		slog.String("subject_id", subject.ID),
		slog.String("token_id", params.TokenID),
	)

	return domain.IssuedToken{
		Token:     token,
		Kind:      kind,
		TokenID:   params.TokenID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IssueTokenPair issues an access token and a ledgered refresh token. The
// refresh token is issued first so a ledger failure returns no pair at all.
func (m *Manager) IssueTokenPair(ctx context.Context, subject domain.Subject, rc domain.RequestContext) (*domain.TokenPair, error) {
	refresh, err := m.Issue(ctx, domain.KindRefresh, subject, rc)
	if err != nil {
		return nil, err
	}

	access, err := m.Issue(ctx, domain.KindAccess, subject, rc)
	if err != nil {
		// The refresh token was never handed out; make sure it can't be used.
		if rerr := m.Revoke(ctx, refresh.Token); rerr != nil {
			slogx.FromContext(ctx).Warn("failed to revoke orphaned refresh token",
				slog.String("token_id", refresh.TokenID),
				slogx.Err(rerr),
			)
		}
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		TokenType:        TokenTypeBearer,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}
