package domain

import "time"

// LedgerRecord is the persisted state of one refresh token. The raw token is
// never stored, only its fingerprint.
type LedgerRecord struct {
	ID                string
	TokenHash         string
	TokenID           string
	Kind              Kind
	OwnerID           string
	DeviceFingerprint string
	SourceIP          string
	Revoked           bool
	RevokedAt         *time.Time
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

// Active reports whether the record still grants trust at now. The stored
// expiry is checked independently of the token's own exp claim.
func (r LedgerRecord) Active(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}
