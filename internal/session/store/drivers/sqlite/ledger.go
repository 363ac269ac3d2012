package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
)

const ledgerColumns = `id, token_hash, token_id, kind, owner_id, device_fingerprint, source_ip,
	revoked, revoked_at, expires_at, created_at`

type ledgerRepo struct {
	db *sql.DB
}

func (r *ledgerRepo) InsertIfAbsent(ctx context.Context, rec domain.LedgerRecord) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_ledger (`+ledgerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)
		ON CONFLICT (token_hash) DO NOTHING`,
		rec.ID,
		rec.TokenHash,
		rec.TokenID,
		string(domain.KindRefresh),
		rec.OwnerID,
		mapStringNull(rec.DeviceFingerprint),
		mapStringNull(rec.SourceIP),
		toMillis(rec.ExpiresAt),
		toMillis(rec.CreatedAt),
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *ledgerRepo) FindByHash(ctx context.Context, hash string) (domain.LedgerRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM refresh_ledger WHERE token_hash = ?`, hash)

	rec, err := scanRecord(row)
	if err != nil {
		return domain.LedgerRecord{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *ledgerRepo) RevokeOne(ctx context.Context, hash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_ledger
		SET revoked = 1, revoked_at = ?
		WHERE token_hash = ? AND revoked = 0`,
		toMillis(at), hash,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ledgerRepo) RevokeAllForOwner(ctx context.Context, ownerID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_ledger
		SET revoked = 1, revoked_at = ?
		WHERE owner_id = ? AND revoked = 0`,
		toMillis(at), ownerID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ledgerRepo) ListActiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]domain.LedgerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM refresh_ledger
		WHERE owner_id = ? AND revoked = 0 AND expires_at > ?
		ORDER BY created_at DESC, id DESC`,
		ownerID, toMillis(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *ledgerRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_ledger WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (domain.LedgerRecord, error) {
	var (
		rec       domain.LedgerRecord
		kind      string
		device    sql.NullString
		ip        sql.NullString
		revoked   int64
		revokedAt sql.NullInt64
		expiresAt int64
		createdAt int64
	)

	if err := s.Scan(
		&rec.ID,
		&rec.TokenHash,
		&rec.TokenID,
		&kind,
		&rec.OwnerID,
		&device,
		&ip,
		&revoked,
		&revokedAt,
		&expiresAt,
		&createdAt,
	); err != nil {
		return domain.LedgerRecord{}, err
	}

	rec.Kind = domain.Kind(kind)
	rec.DeviceFingerprint = mapNullString(device)
	rec.SourceIP = mapNullString(ip)
	rec.Revoked = revoked != 0
	rec.RevokedAt = mapNullMillisPtr(revokedAt)
	rec.ExpiresAt = fromMillis(expiresAt)
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}
