// Package ledger tracks refresh token revocation state on top of a
// store.Ledger. Tokens are identified only by their fingerprint; the ledger
// never sees a raw token.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sessionguard/internal/session/binding"
	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/internal/session/store"
	"github.com/aussiebroadwan/sessionguard/pkg/idx"
)

// Entry is what the issuance path knows about a new refresh token.
type Entry struct {
	TokenHash string
	TokenID   string
	OwnerID   string
	Binding   binding.Bound
	ExpiresAt time.Time
}

type Ledger struct {
	repo store.Ledger
	now  func() time.Time
}

type Option func(*Ledger)

// WithClock overrides the time source used for revocation stamps and expiry
// checks.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(repo store.Ledger, opts ...Option) *Ledger {
	l := &Ledger{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record persists e. Recording the same hash twice is a no-op so the
// issuance path can retry safely.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.TokenHash == "" || e.OwnerID == "" {
		return errors.New("ledger: token hash and owner are required")
	}

	_, err := l.repo.InsertIfAbsent(ctx, domain.LedgerRecord{
		ID:                idx.New().String(),
		TokenHash:         e.TokenHash,
		TokenID:           e.TokenID,
		Kind:              domain.KindRefresh,
		OwnerID:           e.OwnerID,
		DeviceFingerprint: e.Binding.DeviceFingerprint,
		SourceIP:          e.Binding.SourceIP,
		ExpiresAt:         e.ExpiresAt,
		CreatedAt:         l.now(),
	})
	if err != nil {
		return fmt.Errorf("ledger: record: %w", err)
	}
	return nil
}

// Lookup returns the record for hash and whether it is active. A missing
// record is reported as inactive, not as an error.
func (l *Ledger) Lookup(ctx context.Context, hash string) (domain.LedgerRecord, bool, error) {
	rec, err := l.repo.FindByHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return domain.LedgerRecord{}, false, nil
	}
	if err != nil {
		return domain.LedgerRecord{}, false, fmt.Errorf("ledger: lookup: %w", err)
	}
	return rec, rec.Active(l.now()), nil
}

// IsActive reports whether hash has a record that is neither revoked nor
// past its stored expiry.
func (l *Ledger) IsActive(ctx context.Context, hash string) (bool, error) {
	_, active, err := l.Lookup(ctx, hash)
	return active, err
}

// Revoke marks hash revoked. Unknown or already revoked hashes succeed.
func (l *Ledger) Revoke(ctx context.Context, hash string) error {
	if _, err := l.repo.RevokeOne(ctx, hash, l.now()); err != nil {
		return fmt.Errorf("ledger: revoke: %w", err)
	}
	return nil
}

// RevokeIfActive revokes hash and reports whether this call made the change.
// Of several concurrent callers for the same hash exactly one sees true.
func (l *Ledger) RevokeIfActive(ctx context.Context, hash string) (bool, error) {
	changed, err := l.repo.RevokeOne(ctx, hash, l.now())
	if err != nil {
		return false, fmt.Errorf("ledger: revoke: %w", err)
	}
	return changed, nil
}

// RevokeAll revokes every active record owned by ownerID in a single
// statement. A record inserted concurrently either lands before the update
// and is revoked, or after it and is picked up by the next RevokeAll.
func (l *Ledger) RevokeAll(ctx context.Context, ownerID string) (int64, error) {
	n, err := l.repo.RevokeAllForOwner(ctx, ownerID, l.now())
	if err != nil {
		return 0, fmt.Errorf("ledger: revoke all: %w", err)
	}
	return n, nil
}

// ListActive returns the owner's active records, newest first.
func (l *Ledger) ListActive(ctx context.Context, ownerID string) ([]domain.LedgerRecord, error) {
	recs, err := l.repo.ListActiveByOwner(ctx, ownerID, l.now())
	if err != nil {
		return nil, fmt.Errorf("ledger: list active: %w", err)
	}
	return recs, nil
}

// Sweep deletes records whose stored expiry has passed.
func (l *Ledger) Sweep(ctx context.Context) (int64, error) {
	n, err := l.repo.DeleteExpired(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("ledger: sweep: %w", err)
	}
	return n, nil
}
