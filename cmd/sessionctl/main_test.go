package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessionguard/pkg/cryptox"
)

type cli struct {
	env map[string]string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{env: map[string]string{
		"ENV":                        "dev",
		"SESSION_MASTER_SECRET_FILE": filepath.Join(dir, "master.secret"),
		"SESSION_DATABASE_FILE":      filepath.Join(dir, "sessions.db"),
	}}
}

func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, func(k string) string { return c.env[k] }, &stdout, &stderr)
	return stdout.String(), err
}

func (c *cli) issue(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(t, append([]string{"issue"}, args...)...)
	require.NoError(t, err)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestSessionLifecycle(t *testing.T) {
	c := newCLI(t)

	first := c.issue(t, "--kind", "refresh", "u1")
	c.issue(t, "--kind", "refresh", "u1")

	out, err := c.run(t, "sessions", "u1")
	require.NoError(t, err)
	var sessions []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 2)

	out, err = c.run(t, "revoke", first)
	require.NoError(t, err)
	require.Equal(t, "revoked\n", out)

	out, err = c.run(t, "revoke-all", "u1")
	require.NoError(t, err)
	require.JSONEq(t, `{"revoked":1}`, out)

	out, err = c.run(t, "sessions", "u1")
	require.NoError(t, err)
	require.JSONEq(t, `[]`, out)

	out, err = c.run(t, "sweep")
	require.NoError(t, err)
	require.JSONEq(t, `{"deleted":0}`, out)
}

func TestIntrospect(t *testing.T) {
	c := newCLI(t)

	tok := c.issue(t, "--kind", "access", "--email", "alice@example.com", "--role", "admin", "u1")

	out, err := c.run(t, "introspect", tok)
	require.NoError(t, err)

	var md map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &md))
	require.Equal(t, "access", md["kind"])
	require.Equal(t, "u1", md["sub"])
	require.Equal(t, "admin", md["role"])
	require.Equal(t, false, md["expired"])

	_, err = c.run(t, "introspect", "not-a-jwt")
	require.Error(t, err)
}

func TestGlobalFlagsOverrideEnv(t *testing.T) {
	c := newCLI(t)
	other := filepath.Join(t.TempDir(), "other.db")

	c.issue(t, "--kind", "refresh", "u1")

	out, err := c.run(t, "--database-file", other, "sessions", "u1")
	require.NoError(t, err)
	require.JSONEq(t, `[]`, out, "flag points at an empty database")
}

func TestGenSecret(t *testing.T) {
	c := newCLI(t)
	c.env["ENV"] = "prod"

	out, err := c.run(t, "gen-secret")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "access.secret")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o600))

	secret, err := cryptox.LoadSecret(path)
	require.NoError(t, err)
	require.Len(t, secret, cryptox.TokenSize256)
}

func TestUsageErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t)
	require.ErrorIs(t, err, pflag.ErrHelp)

	_, err = c.run(t, "frobnicate")
	require.ErrorContains(t, err, "unknown command")

	_, err = c.run(t, "revoke")
	require.ErrorContains(t, err, "expected 1 argument")

	_, err = c.run(t, "issue", "--kind", "bogus", "u1")
	require.ErrorContains(t, err, "unknown token kind")

	c.env["ENV"] = "prod"
	delete(c.env, "SESSION_MASTER_SECRET_FILE")
	_, err = c.run(t, "sweep")
	require.ErrorContains(t, err, "no signing secret")
}
