package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
}

// HS256Signer signs with the primary key of a Keyring.
type HS256Signer struct {
	kid string
	key []byte
}

// NewSignerHS256 returns a signer bound to the keyring's primary key.
func NewSignerHS256(ring *Keyring) (*HS256Signer, error) {
	if ring == nil {
		return nil, errors.New("jwtx: nil keyring")
	}
	kid, key := ring.Primary()
	return &HS256Signer{kid: kid, key: key}, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }
func (s *HS256Signer) KID() string { return s.kid }

// Sign takes your claims and turns them into a compact, URL-safe JWT.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
