package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ledgerColumns = `id, token_hash, token_id, kind, owner_id, device_fingerprint, source_ip,
	revoked, revoked_at, expires_at, created_at`

type ledgerRepo struct {
	pool *pgxpool.Pool
}

func (r *ledgerRepo) InsertIfAbsent(ctx context.Context, rec domain.LedgerRecord) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_ledger (`+ledgerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NULL, $8, $9)
		ON CONFLICT (token_hash) DO NOTHING
	`,
		rec.ID,
		rec.TokenHash,
		rec.TokenID,
		string(domain.KindRefresh),
		rec.OwnerID,
		nullIfEmpty(rec.DeviceFingerprint),
		nullIfEmpty(rec.SourceIP),
		rec.ExpiresAt.UTC(),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ledgerRepo) FindByHash(ctx context.Context, hash string) (domain.LedgerRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM refresh_ledger WHERE token_hash = $1`, hash)

	rec, err := scanRecord(row)
	if err != nil {
		return domain.LedgerRecord{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *ledgerRepo) RevokeOne(ctx context.Context, hash string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_ledger
		SET revoked = TRUE, revoked_at = COALESCE(revoked_at, $2)
		WHERE token_hash = $1 AND NOT revoked
	`, hash, at.UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ledgerRepo) RevokeAllForOwner(ctx context.Context, ownerID string, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_ledger
		SET revoked = TRUE, revoked_at = COALESCE(revoked_at, $2)
		WHERE owner_id = $1 AND NOT revoked
	`, ownerID, at.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ledgerRepo) ListActiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]domain.LedgerRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM refresh_ledger
		WHERE owner_id = $1 AND NOT revoked AND expires_at > $2
		ORDER BY created_at DESC, id DESC
	`, ownerID, now.UTC())
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
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_ledger WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (domain.LedgerRecord, error) {
	var (
		rec    domain.LedgerRecord
		kind   string
		device *string
		ip     *string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.TokenHash,
		&rec.TokenID,
		&kind,
		&rec.OwnerID,
		&device,
		&ip,
		&rec.Revoked,
		&rec.RevokedAt,
		&rec.ExpiresAt,
		&rec.CreatedAt,
	); err != nil {
		return domain.LedgerRecord{}, err
	}

	rec.Kind = domain.Kind(kind)
	rec.DeviceFingerprint = derefString(device)
	rec.SourceIP = derefString(ip)
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.RevokedAt != nil {
		t := rec.RevokedAt.UTC()
		rec.RevokedAt = &t
	}
	return rec, nil
}
