package app

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/sessionguard/pkg/cryptox"
	"github.com/aussiebroadwan/sessionguard/pkg/jwtx"
)

// HKDF labels for the two signing families. Changing either invalidates
// every token derived from the master secret.
const (
	accessFamilyLabel = "sessionguard/v1/access-family"
	refreshLabel      = "sessionguard/v1/refresh"
)

// devMasterSecretFile is generated on first start when ENV=dev and no
// secret is configured.
const devMasterSecretFile = "master.secret"

var ErrNoSigningSecret = errors.New("no signing secret configured: set SESSION_MASTER_SECRET_FILE or both family secret files")

// Keys are the two verification keyrings the Manager signs with.
type Keys struct {
	Access  *jwtx.Keyring
	Refresh *jwtx.Keyring
}

// LoadKeys resolves the signing secret of each family and wraps it with its
// previous secrets into a keyring.
//
// Resolution per family:
//   - the family secret file, when set;
//   - otherwise a sub-key HKDF-derived from the master secret;
//   - in dev with nothing set, a generated master secret file.
func LoadKeys(cfg Config, logger *slog.Logger) (*Keys, error) {
	master, err := loadMaster(cfg, logger)
	if err != nil {
		return nil, err
	}

	access, err := familyKeyring(cfg, "access", cfg.AccessSecretFile, master, accessFamilyLabel, cfg.PreviousAccessSecretFiles)
	if err != nil {
		return nil, err
	}
	refresh, err := familyKeyring(cfg, "refresh", cfg.RefreshSecretFile, master, refreshLabel, cfg.PreviousRefreshSecretFiles)
	if err != nil {
		return nil, err
	}

	if shared := jwtx.SharedKIDs(access, refresh); len(shared) > 0 {
		return nil, fmt.Errorf("access and refresh secrets must differ: shared kid %s", strings.Join(shared, ", "))
	}
	accessKID, _ := access.Primary()
	refreshKID, _ := refresh.Primary()

	logger.Info("signing keys loaded",
		"access_kid", accessKID, "access_keys", access.Len(),
		"refresh_kid", refreshKID, "refresh_keys", refresh.Len(),
	)
	return &Keys{Access: access, Refresh: refresh}, nil
}

func loadMaster(cfg Config, logger *slog.Logger) ([]byte, error) {
	path := cfg.MasterSecretFile
	needMaster := cfg.AccessSecretFile == "" || cfg.RefreshSecretFile == ""

	if path == "" {
		if !needMaster {
			return nil, nil
		}
		if !cfg.IsDev() {
			return nil, ErrNoSigningSecret
		}
		path = devMasterSecretFile
		logger.Warn("using development master secret", "path", filepath.Clean(path))
	}

	return readSecret(cfg, path)
}

func familyKeyring(cfg Config, family, path string, master []byte, label string, previous []string) (*jwtx.Keyring, error) {
	var (
		primary []byte
		err     error
	)
	if path != "" {
		primary, err = readSecret(cfg, path)
	} else {
		primary, err = cryptox.DeriveKey(master, label)
	}
	if err != nil {
		return nil, fmt.Errorf("%s secret: %w", family, err)
	}

	prev := make([][]byte, 0, len(previous))
	for _, p := range previous {
		secret, err := cryptox.LoadSecret(p)
		if err != nil {
			return nil, fmt.Errorf("previous %s secret: %w", family, err)
		}
		prev = append(prev, secret)
	}

	ring, err := jwtx.NewKeyring(primary, prev...)
	if err != nil {
		return nil, fmt.Errorf("%s keyring: %w", family, err)
	}
	return ring, nil
}

// readSecret generates missing files in dev only. Previous secrets are never
// generated; a missing one is always an error.
func readSecret(cfg Config, path string) ([]byte, error) {
	if cfg.IsDev() {
		return cryptox.LoadOrGenerateSecret(path)
	}
	return cryptox.LoadSecret(path)
}
