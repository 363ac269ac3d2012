package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessionguard/pkg/cryptox"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

func writeSecret(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadKeysDerivesFamiliesFromMaster(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg := Config{Env: "prod", MasterSecretFile: writeSecret(t, dir, "master", strings.Repeat("m", 40))}
	keys, err := LoadKeys(cfg, slogx.Discard())
	require.NoError(t, err)

	accessKID, accessKey := keys.Access.Primary()
	refreshKID, refreshKey := keys.Refresh.Primary()
	require.NotEqual(t, accessKID, refreshKID)
	require.NotEqual(t, accessKey, refreshKey)

	again, err := LoadKeys(cfg, slogx.Discard())
	require.NoError(t, err)
	kid, _ := again.Access.Primary()
	require.Equal(t, accessKID, kid, "derivation is deterministic")
}

func TestLoadKeysFamilyFileWins(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	accessSecret := strings.Repeat("a", 32)
	cfg := Config{
		Env:              "prod",
		MasterSecretFile: writeSecret(t, dir, "master", strings.Repeat("m", 40)),
		AccessSecretFile: writeSecret(t, dir, "access", accessSecret+"\n"),
	}
	keys, err := LoadKeys(cfg, slogx.Discard())
	require.NoError(t, err)

	kid, _ := keys.Access.Primary()
	require.Equal(t, cryptox.KeyID([]byte(accessSecret)), kid)
}

func TestLoadKeysPreviousSecrets(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	old := strings.Repeat("o", 32)
	cfg := Config{
		Env:                        "prod",
		AccessSecretFile:           writeSecret(t, dir, "access", strings.Repeat("a", 32)),
		RefreshSecretFile:          writeSecret(t, dir, "refresh", strings.Repeat("r", 32)),
		PreviousRefreshSecretFiles: []string{writeSecret(t, dir, "refresh.old", old)},
	}
	keys, err := LoadKeys(cfg, slogx.Discard())
	require.NoError(t, err)
	require.Equal(t, 1, keys.Access.Len())
	require.Equal(t, 2, keys.Refresh.Len())

	_, err = keys.Refresh.Get(cryptox.KeyID([]byte(old)))
	require.NoError(t, err)

	cfg.PreviousAccessSecretFiles = []string{filepath.Join(dir, "missing")}
	_, err = LoadKeys(cfg, slogx.Discard())
	require.Error(t, err, "previous secrets are never generated")
}

func TestLoadKeysRequiresSecretOutsideDev(t *testing.T) {
	t.Parallel()

	_, err := LoadKeys(Config{Env: "prod"}, slogx.Discard())
	require.ErrorIs(t, err, ErrNoSigningSecret)
}

func TestLoadKeysRejectsShortSecret(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := LoadKeys(Config{Env: "prod", MasterSecretFile: writeSecret(t, dir, "master", "short")}, slogx.Discard())
	require.ErrorIs(t, err, cryptox.ErrSecretTooShort)
}

func TestLoadKeysRejectsSharedSecret(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	shared := writeSecret(t, dir, "shared", strings.Repeat("s", 32))
	_, err := LoadKeys(Config{Env: "prod", AccessSecretFile: shared, RefreshSecretFile: shared}, slogx.Discard())
	require.Error(t, err)

	_, err = LoadKeys(Config{
		Env:                        "prod",
		AccessSecretFile:           writeSecret(t, dir, "access", strings.Repeat("a", 32)),
		RefreshSecretFile:          writeSecret(t, dir, "refresh", strings.Repeat("r", 32)),
		PreviousAccessSecretFiles:  []string{shared},
		PreviousRefreshSecretFiles: []string{shared},
	}, slogx.Discard())
	require.ErrorContains(t, err, "must differ")
}

func TestLoadKeysGeneratesInDev(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	master := filepath.Join(dir, "nested", "master.secret")
	keys, err := LoadKeys(Config{Env: "dev", MasterSecretFile: master}, slogx.Discard())
	require.NoError(t, err)
	require.FileExists(t, master)

	info, err := os.Stat(master)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadKeys(Config{Env: "dev", MasterSecretFile: master}, slogx.Discard())
	require.NoError(t, err)
	a, _ := keys.Access.Primary()
	b, _ := again.Access.Primary()
	require.Equal(t, a, b, "generated secret is reused")
}
