package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/pkg/cryptox"
	"github.com/aussiebroadwan/sessionguard/pkg/jwtx"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

// RotateIfNeeded replaces the pair when the access token is close to
// expiry. It is a no-op unless rotation is enabled.
//
// Only the access token's exp is read without verification. The refresh
// token must verify fully and belong to subject. It is then spent with a
// conditional revoke: when two rotations race on one refresh token only the
// caller whose revoke changed the row gets a new pair, the other sees
// ErrRevoked.
//
// The old refresh token is revoked before the new pair is issued. If
// issuance then fails the subject is left without a refresh token and must
// sign in again.
func (m *Manager) RotateIfNeeded(ctx context.Context, accessToken, refreshToken string, subject domain.Subject, rc domain.RequestContext) (domain.RotationResult, error) {
	if !m.opts.Rotation.Enabled {
		return m.rotationResult(nil, domain.RotationDisabled), nil
	}

	access, err := jwtx.DecodeUnverified(strings.TrimSpace(accessToken))
	if err != nil {
		return domain.RotationResult{}, domain.NewTokenError(domain.ErrorKindTampered, err)
	}
	if access.Kind != domain.KindAccess.String() {
		return domain.RotationResult{}, domain.NewTokenError(domain.ErrorKindWrongKind, nil)
	}
	if access.ExpiresIn(m.now()) >= m.opts.Rotation.Threshold {
		return m.rotationResult(nil, domain.RotationNotDue), nil
	}

	refresh, err := m.Verify(ctx, refreshToken, domain.KindRefresh, rc)
	if err != nil {
		return domain.RotationResult{}, err
	}
	if refresh.SubjectID != strings.TrimSpace(subject.ID) || access.Subject != refresh.SubjectID {
		return domain.RotationResult{}, domain.NewTokenError(domain.ErrorKindInvalidSubject, nil)
	}

	logger := slogx.FromContext(ctx).With(
		slog.String("subject_id", refresh.SubjectID),
		slog.String("previous_token_id", refresh.TokenID),
	)

	spent, err := m.ledger.RevokeIfActive(ctx, cryptox.FingerprintToken(strings.TrimSpace(refreshToken)))
	if err != nil {
		return domain.RotationResult{}, err
	}
	if !spent {
		logger.Warn("rotation lost race for refresh token")
		m.metrics.VerifyFailures.WithLabelValues(domain.KindRefresh.String(), string(domain.ErrorKindRevoked)).Inc()
		return domain.RotationResult{}, domain.NewTokenError(domain.ErrorKindRevoked, nil)
	}
	m.metrics.Revocations.WithLabelValues("single").Inc()

	pair, err := m.IssueTokenPair(ctx, subject, rc)
	if err != nil {
		logger.Error("rotation revoked refresh token but issuance failed", slogx.Err(err))
		return domain.RotationResult{}, err
	}

	logger.Info("session rotated")
	return m.rotationResult(pair, domain.RotationRotated), nil
}

func (m *Manager) rotationResult(pair *domain.TokenPair, reason domain.RotationReason) domain.RotationResult {
	m.metrics.Rotations.WithLabelValues(string(reason)).Inc()
	return domain.RotationResult{Pair: pair, Reason: reason}
}
