package domain

import "fmt"

// Kind discriminates a token's single intended use. It is signed into the
// token and checked on every verification.
type Kind string

const (
	KindAccess       Kind = "access"
	KindRefresh      Kind = "refresh"
	KindVerification Kind = "verification"
	KindReset        Kind = "reset"
)

// Kinds lists every token kind in a stable order.
var Kinds = []Kind{KindAccess, KindRefresh, KindVerification, KindReset}

// ParseKind validates s as a known kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown token kind %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindAccess, KindRefresh, KindVerification, KindReset:
		return true
	}
	return false
}

// Ledgered reports whether tokens of this kind have a revocation ledger
// record. Only refresh tokens do; everything else simply expires.
func (k Kind) Ledgered() bool { return k == KindRefresh }

// Bindable reports whether device/IP binding applies to this kind.
// Verification and reset tokens travel through email and are never bound.
func (k Kind) Bindable() bool { return k == KindAccess || k == KindRefresh }

func (k Kind) String() string { return string(k) }
