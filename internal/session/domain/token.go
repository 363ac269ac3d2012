package domain

import "time"

// IssuedToken is a freshly signed token plus the metadata the caller usually
// wants without decoding it again.
type IssuedToken struct {
	Token     string
	Kind      Kind
	TokenID   string
	ExpiresAt time.Time
}

// TokenPair is an access token and the refresh token that can renew it.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type,omitempty"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Claims is the verified view of a token handed back to callers.
type Claims struct {
	SubjectID         string
	Email             string
	Role              string
	Kind              Kind
	TokenID           string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	DeviceFingerprint string
	SourceIP          string
}

// UntrustedMetadata is the result of decoding a token WITHOUT verifying it.
// It exists for support tooling and debugging. Nothing in it may be used to
// authorize an action; the signature has not been checked.
type UntrustedMetadata struct {
	Kind        string    `json:"kind"`
	SubjectID   string    `json:"sub"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role,omitempty"`
	TokenID     string    `json:"jti,omitempty"`
	Issuer      string    `json:"iss,omitempty"`
	Audience    []string  `json:"aud,omitempty"`
	KeyID       string    `json:"kid,omitempty"`
	IssuedAt    time.Time `json:"iat"`
	ExpiresAt   time.Time `json:"exp"`
	Expired     bool      `json:"expired"`
	DeviceBound bool      `json:"device_bound"`
	IPBound     bool      `json:"ip_bound"`
}

// RotationReason says why RotateIfNeeded did or did not rotate.
type RotationReason string

const (
	RotationDisabled RotationReason = "disabled"
	RotationNotDue   RotationReason = "not_due"
	RotationRotated  RotationReason = "rotated"
)

// RotationResult carries the new pair when Reason is RotationRotated and is
// nil otherwise.
type RotationResult struct {
	Pair   *TokenPair
	Reason RotationReason
}
