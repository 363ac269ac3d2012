package jwtx

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aussiebroadwan/sessionguard/pkg/cryptox"
)

var ErrNoKey = errors.New("jwtx: key not found")

// Keyring holds the HMAC secrets for one token family. The primary key
// signs new tokens; previous keys are accepted for verification only, which
// lets operators roll a secret without logging everybody out.
//
// A Keyring is immutable after construction.
type Keyring struct {
	primary string
	keys    map[string][]byte
}

// NewKeyring builds a keyring from the primary secret and any number of
// retired secrets that should still verify.
func NewKeyring(primary []byte, previous ...[]byte) (*Keyring, error) {
	if len(primary) < cryptox.MinSecretSize {
		return nil, fmt.Errorf("jwtx: primary key: %w", cryptox.ErrSecretTooShort)
	}

	r := &Keyring{
		primary: cryptox.KeyID(primary),
		keys:    make(map[string][]byte, 1+len(previous)),
	}
	r.keys[r.primary] = clone(primary)

	for i, k := range previous {
		if len(k) == 0 {
			continue
		}
		if len(k) < cryptox.MinSecretSize {
			return nil, fmt.Errorf("jwtx: previous key %d: %w", i, cryptox.ErrSecretTooShort)
		}
		kid := cryptox.KeyID(k)
		if _, exists := r.keys[kid]; !exists {
			r.keys[kid] = clone(k)
		}
	}

	return r, nil
}

// Primary returns the signing key and its kid.
func (r *Keyring) Primary() (string, []byte) {
	return r.primary, r.keys[r.primary]
}

// Get returns the key for kid.
func (r *Keyring) Get(kid string) ([]byte, error) {
	if k, ok := r.keys[kid]; ok {
		return k, nil
	}
	return nil, ErrNoKey
}

// Len reports how many keys verify.
func (r *Keyring) Len() int { return len(r.keys) }

// KIDs returns every kid that verifies, sorted.
func (r *Keyring) KIDs() []string {
	kids := make([]string, 0, len(r.keys))
	for kid := range r.keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)
	return kids
}

// SharedKIDs returns the kids present in both a and b, primary or previous.
func SharedKIDs(a, b *Keyring) []string {
	var shared []string
	for _, kid := range a.KIDs() {
		if _, ok := b.keys[kid]; ok {
			shared = append(shared, kid)
		}
	}
	return shared
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
