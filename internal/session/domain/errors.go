package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the failure taxonomy for issuance and verification. Callers
// log and count these; end users only ever see a generic invalid session.
type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindExpired           ErrorKind = "expired"
	ErrorKindNotYetValid       ErrorKind = "not_yet_valid"
	ErrorKindTampered          ErrorKind = "tampered"
	ErrorKindWrongKind         ErrorKind = "wrong_kind"
	ErrorKindBindingMismatch   ErrorKind = "binding_mismatch"
	ErrorKindRevoked           ErrorKind = "revoked"
	ErrorKindLedgerWriteFailed ErrorKind = "ledger_write_failed"
	ErrorKindInvalidSubject    ErrorKind = "invalid_subject"
)

var (
	ErrExpired           = errors.New("token expired")
	ErrNotYetValid       = errors.New("token not yet valid")
	ErrTampered          = errors.New("token malformed or tampered")
	ErrWrongKind         = errors.New("token kind mismatch")
	ErrBindingMismatch   = errors.New("token binding mismatch")
	ErrRevoked           = errors.New("token revoked")
	ErrLedgerWriteFailed = errors.New("ledger write failed")
	ErrInvalidSubject    = errors.New("invalid subject")
)

var sentinels = map[ErrorKind]error{
	ErrorKindExpired:           ErrExpired,
	ErrorKindNotYetValid:       ErrNotYetValid,
	ErrorKindTampered:          ErrTampered,
	ErrorKindWrongKind:         ErrWrongKind,
	ErrorKindBindingMismatch:   ErrBindingMismatch,
	ErrorKindRevoked:           ErrRevoked,
	ErrorKindLedgerWriteFailed: ErrLedgerWriteFailed,
	ErrorKindInvalidSubject:    ErrInvalidSubject,
}

// TokenError tags a failure with its ErrorKind. errors.Is matches both the
// sentinel for the kind and whatever Err wraps.
type TokenError struct {
	Kind ErrorKind
	Err  error
}

// NewTokenError wraps cause under kind. cause may be nil.
func NewTokenError(kind ErrorKind, cause error) *TokenError {
	return &TokenError{Kind: kind, Err: cause}
}

func (e *TokenError) Error() string {
	msg := string(e.Kind)
	if s, ok := sentinels[e.Kind]; ok {
		msg = s.Error()
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRevoked) match a TokenError of kind revoked.
func (e *TokenError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf extracts the ErrorKind from err, or ErrorKindNone when err carries
// no TokenError.
func KindOf(err error) ErrorKind {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrorKindNone
}
