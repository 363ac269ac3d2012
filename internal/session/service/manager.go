package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessionguard/internal/session/binding"
	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/internal/session/ledger"
	"github.com/aussiebroadwan/sessionguard/internal/session/store"
	"github.com/aussiebroadwan/sessionguard/pkg/cryptox"
	"github.com/aussiebroadwan/sessionguard/pkg/idx"
	"github.com/aussiebroadwan/sessionguard/pkg/jwtx"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

// TokenTypeBearer is the token_type reported on issued pairs.
const TokenTypeBearer = "Bearer"

// Manager issues, verifies, rotates and revokes session tokens. It holds no
// per-session state; the ledger is the only shared mutable resource.
type Manager struct {
	opts   Options
	ledger *ledger.Ledger

	accessSigner    jwtx.Signer
	refreshSigner   jwtx.Signer
	accessVerifier  jwtx.Verifier
	refreshVerifier jwtx.Verifier

	metrics *Metrics
	now     func() time.Time
}

// NewManager validates opts and wires the signers, verifiers and ledger.
func NewManager(opts Options, repo store.Ledger, options ...Option) (*Manager, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	m := &Manager{opts: opts, now: time.Now}
	for _, o := range options {
		o(m)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}

	var err error
	if m.accessSigner, err = jwtx.NewSignerHS256(opts.AccessKeys); err != nil {
		return nil, fmt.Errorf("service: access signer: %w", err)
	}
	if m.refreshSigner, err = jwtx.NewSignerHS256(opts.RefreshKeys); err != nil {
		return nil, fmt.Errorf("service: refresh signer: %w", err)
	}

	vopts := jwtx.VerifyOptions{
		Issuer:   opts.Issuer,
		Audience: opts.Audience,
		Leeway:   opts.ClockSkew,
		Now:      m.now,
	}
	m.accessVerifier = jwtx.NewVerifierHS256(opts.AccessKeys, vopts)
	m.refreshVerifier = jwtx.NewVerifierHS256(opts.RefreshKeys, vopts)
	m.ledger = ledger.New(repo, ledger.WithClock(m.now))

	return m, nil
}

// Revoke marks a refresh token revoked. The token is not verified first, so
// expired tokens can still be revoked. Unknown tokens succeed.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	if err := m.ledger.Revoke(ctx, cryptox.FingerprintToken(token)); err != nil {
		return err
	}
	m.metrics.Revocations.WithLabelValues("single").Inc()
	return nil
}

// RevokeAll revokes every refresh token held by subjectID and returns how
// many records changed. Tokens issued afterwards are unaffected.
func (m *Manager) RevokeAll(ctx context.Context, subjectID string) (int64, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return 0, domain.NewTokenError(domain.ErrorKindInvalidSubject, nil)
	}

	n, err := m.ledger.RevokeAll(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	m.metrics.Revocations.WithLabelValues("owner").Inc()

	slogx.FromContext(ctx).Info("revoked all sessions",
		slog.String("subject_id", subjectID),
		slog.Int64("revoked", n),
	)
	return n, nil
}

// ListSessions returns the subject's active refresh token records. It reads
// the primary store so a revocation just made is never listed.
func (m *Manager) ListSessions(ctx context.Context, subjectID string) ([]domain.LedgerRecord, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, domain.NewTokenError(domain.ErrorKindInvalidSubject, nil)
	}
	return m.ledger.ListActive(ctx, subjectID)
}

// Sweep deletes expired ledger records.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.ledger.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	m.metrics.Swept.Add(float64(n))
	return n, nil
}

func (m *Manager) signerFor(kind domain.Kind) jwtx.Signer {
	if kind == domain.KindRefresh {
		return m.refreshSigner
	}
	return m.accessSigner
}

func (m *Manager) verifierFor(kind domain.Kind) jwtx.Verifier {
	if kind == domain.KindRefresh {
		return m.refreshVerifier
	}
	return m.accessVerifier
}

// newTokenID returns a fresh jti. ULIDs carry 80 bits of randomness.
func (m *Manager) newTokenID() string {
	return idx.NewAt(m.now()).String()
}

func boundOf(c jwtx.Claims) binding.Bound {
	return binding.Bound{DeviceFingerprint: c.DeviceFingerprint, SourceIP: c.SourceIP}
}

func errorKindFromJWT(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return domain.ErrorKindExpired
	case errors.Is(err, jwtx.ErrNotYetValid):
		return domain.ErrorKindNotYetValid
	default:
		return domain.ErrorKindTampered
	}
}
