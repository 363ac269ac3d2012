package cryptox

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

// MinSecretSize is the shortest HMAC secret we accept. HS256 keys shorter
// than the hash output weaken the MAC.
const MinSecretSize = 32

var ErrSecretTooShort = fmt.Errorf("cryptox: secret must be at least %d bytes", MinSecretSize)

// LoadSecret reads signing secret material from a file. Surrounding
// whitespace is trimmed so secrets written by `echo` or mounted by an
// orchestrator work as-is. If the content is valid base64url it is decoded,
// otherwise the raw bytes are used.
func LoadSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("cryptox: read secret %q: %w", path, err)
	}

	raw := bytes.TrimSpace(data)
	if decoded, err := base64.RawURLEncoding.DecodeString(string(raw)); err == nil && len(decoded) >= MinSecretSize {
		raw = decoded
	}

	if len(raw) < MinSecretSize {
		return nil, ErrSecretTooShort
	}
	return raw, nil
}

// LoadOrGenerateSecret loads the secret at path, creating a fresh random one
// (0600) if the file does not exist yet. Only intended for development.
func LoadOrGenerateSecret(path string) ([]byte, error) {
	path = filepath.Clean(path)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, err
		}

		secret, err := RandomBytes(MinSecretSize)
		if err != nil {
			return nil, err
		}

		encoded := base64.RawURLEncoding.EncodeToString(secret)
		if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
			return nil, fmt.Errorf("cryptox: write secret %q: %w", path, err)
		}
		return secret, nil
	}

	return LoadSecret(path)
}

// DeriveKey expands master into a 32 byte sub-key bound to label using
// HKDF-SHA256. Distinct labels give independent keys, so one master secret
// can back several token families without the families sharing a key.
func DeriveKey(master []byte, label string) ([]byte, error) {
	if len(master) < MinSecretSize {
		return nil, ErrSecretTooShort
	}

	out := make([]byte, 32)
	r := hkdf.New(sha256.New, master, nil, []byte(label))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("cryptox: derive %q: %w", label, err)
	}
	return out, nil
}

// KeyID returns a short, non-reversible identifier for secret material,
// suitable for a JWT "kid" header.
func KeyID(secret []byte) string {
	sum := sha256.Sum256(secret)
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
