package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. The ledger is the only shared mutable state in
// the service and every operation on it is a single statement, so there is
// deliberately no transaction API here.
type Store interface {
	Ledger() Ledger

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Ledger persists refresh token revocation state keyed by token hash.
//
// Implementations must make every method a single atomic statement:
// revocation scoped to an owner is one UPDATE, never a client-side loop.
type Ledger interface {
	// InsertIfAbsent stores rec unless a row with the same token hash
	// exists. inserted is false for the duplicate case, which is not an
	// error.
	InsertIfAbsent(ctx context.Context, rec domain.LedgerRecord) (inserted bool, err error)

	// FindByHash returns the record for hash or ErrNotFound. Reads go to the
	// primary so a just-committed revocation is always visible.
	FindByHash(ctx context.Context, hash string) (domain.LedgerRecord, error)

	// RevokeOne flips revoked=true and stamps revoked_at for hash if it is
	// not already revoked. Unknown hashes are a no-op.
	RevokeOne(ctx context.Context, hash string, at time.Time) (changed bool, err error)

	// RevokeAllForOwner revokes every not-yet-revoked record of ownerID in
	// one statement and reports how many rows changed.
	RevokeAllForOwner(ctx context.Context, ownerID string, at time.Time) (int64, error)

	// ListActiveByOwner returns the owner's records that are neither
	// revoked nor past their stored expiry at now, newest first.
	ListActiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]domain.LedgerRecord, error)

	// DeleteExpired removes records whose stored expiry is at or before
	// now. Safe to run alongside normal traffic.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
