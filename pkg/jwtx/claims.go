package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the claims carried by every session token. The registered
// claims form the signature envelope (iss, aud, exp, nbf, iat, jti, sub);
// everything else is additive so older verifiers keep working.
type Claims struct {
	jwt.RegisteredClaims

	// Kind fixes the single purpose of the token: access, refresh,
	// verification or reset. It never changes after signing.
	Kind string `json:"knd"`

	// Email and Role are only populated on access tokens (email also on
	// verification and reset tokens).
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`

	// Binding claims, present only when the matching policy was enabled at
	// issuance.
	DeviceFingerprint string `json:"dfp,omitempty"`
	SourceIP          string `json:"sip,omitempty"`
}

// ClaimsParams is the input to NewClaims. Kept as a struct because the
// positional form got unreadable fast.
type ClaimsParams struct {
	Subject  string
	TokenID  string
	Kind     string
	Issuer   string
	Audience []string
	TTL      time.Duration
	Now      time.Time

	Email             string
	Role              string
	DeviceFingerprint string
	SourceIP          string
}

// NewClaims builds minimally-correct claims. nbf and iat are both pinned to
// p.Now so a token is valid from the moment it is issued.
func NewClaims(p ClaimsParams) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(p.Now),
			NotBefore: jwt.NewNumericDate(p.Now),
			ExpiresAt: jwt.NewNumericDate(p.Now.Add(p.TTL)),
			ID:        p.TokenID,
		},
		Kind:              p.Kind,
		Email:             p.Email,
		Role:              p.Role,
		DeviceFingerprint: p.DeviceFingerprint,
		SourceIP:          p.SourceIP,
	}
}

// ExpiresIn returns the remaining lifetime relative to now. Tokens without
// an exp claim report zero.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
