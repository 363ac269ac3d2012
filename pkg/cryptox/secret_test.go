package cryptox

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSecret(t *testing.T) {
	dir := t.TempDir()

	t.Run("raw bytes with trailing newline", func(t *testing.T) {
		path := filepath.Join(dir, "raw")
		secret := strings.Repeat("k", MinSecretSize)
		require.NoError(t, os.WriteFile(path, []byte(secret+"\n"), 0o600))

		got, err := LoadSecret(path)
		require.NoError(t, err)
		require.Equal(t, []byte(secret), got)
	})

	t.Run("base64url content is decoded", func(t *testing.T) {
		path := filepath.Join(dir, "b64")
		secret := []byte(strings.Repeat("\x01", MinSecretSize))
		require.NoError(t, os.WriteFile(path, []byte(base64.RawURLEncoding.EncodeToString(secret)), 0o600))

		got, err := LoadSecret(path)
		require.NoError(t, err)
		require.Equal(t, secret, got)
	})

	t.Run("too short", func(t *testing.T) {
		path := filepath.Join(dir, "short")
		require.NoError(t, os.WriteFile(path, []byte("tiny"), 0o600))

		_, err := LoadSecret(path)
		require.ErrorIs(t, err, ErrSecretTooShort)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSecret(filepath.Join(dir, "missing"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoadOrGenerateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "access.key")

	first, err := LoadOrGenerateSecret(path)
	require.NoError(t, err)
	require.Len(t, first, MinSecretSize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrGenerateSecret(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "second load must return the persisted secret")
}

func TestDeriveKey(t *testing.T) {
	master := []byte(strings.Repeat("m", MinSecretSize))

	access, err := DeriveKey(master, "access")
	require.NoError(t, err)
	refresh, err := DeriveKey(master, "refresh")
	require.NoError(t, err)
	again, err := DeriveKey(master, "access")
	require.NoError(t, err)

	require.Len(t, access, 32)
	require.Equal(t, access, again)
	require.NotEqual(t, access, refresh)

	_, err = DeriveKey([]byte("short"), "access")
	require.ErrorIs(t, err, ErrSecretTooShort)
}

func TestKeyID(t *testing.T) {
	a := KeyID([]byte("secret-a"))
	require.Equal(t, a, KeyID([]byte("secret-a")))
	require.NotEqual(t, a, KeyID([]byte("secret-b")))
	require.Len(t, a, 11)
}
