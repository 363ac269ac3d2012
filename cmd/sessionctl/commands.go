package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/aussiebroadwan/sessionguard/internal/session/app"
	"github.com/aussiebroadwan/sessionguard/internal/session/domain"
	"github.com/aussiebroadwan/sessionguard/internal/session/service"
	"github.com/aussiebroadwan/sessionguard/internal/session/store"
	"github.com/aussiebroadwan/sessionguard/pkg/cryptox"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

type command struct {
	args  int
	flags func(*pflag.FlagSet)
	run   func(ctx context.Context, env *cliEnv, args []string, out io.Writer) error

	// standalone commands need neither keys nor a store; env is nil.
	standalone bool
}

var issueOpts struct {
	kind   string
	email  string
	role   string
	device string
	ip     string
}

var commands = map[string]command{
	"introspect": {args: 1, run: runIntrospect},
	"issue": {
		args: 1,
		flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&issueOpts.kind, "kind", string(domain.KindAccess), "access, refresh, verification or reset")
			fs.StringVar(&issueOpts.email, "email", "", "subject email")
			fs.StringVar(&issueOpts.role, "role", "", "subject role (access tokens only)")
			fs.StringVar(&issueOpts.device, "device", "", "device fingerprint to bind")
			fs.StringVar(&issueOpts.ip, "ip", "", "source IP to bind")
		},
		run: runIssue,
	},
	"revoke":     {args: 1, run: runRevoke},
	"revoke-all": {args: 1, run: runRevokeAll},
	"sessions":   {args: 1, run: runSessions},
	"sweep":      {args: 0, run: runSweep},
	"gen-secret": {args: 0, run: runGenSecret, standalone: true},
}

type sessionView struct {
	TokenID           string    `json:"token_id"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	DeviceFingerprint string    `json:"device_fingerprint,omitempty"`
	SourceIP          string    `json:"source_ip,omitempty"`
}

type cliEnv struct {
	logger  *slog.Logger
	db      store.Store
	manager *service.Manager
}

func openEnv(ctx context.Context, lookup func(string) string, stderr io.Writer) (*cliEnv, error) {
	cfg, err := app.LoadConfigFrom(lookup)
	if err != nil {
		return nil, err
	}

	logger := slogx.New(slogx.Config{
		Service: "sessionctl",
		Version: app.BuildVersion,
		Env:     cfg.Env,
		Level:   "warn",
		Format:  "text",
		Output:  stderr,
	})

	keys, err := app.LoadKeys(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	manager, err := service.NewManager(cfg.ServiceOptions(keys), db.Ledger())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &cliEnv{logger: logger, db: db, manager: manager}, nil
}

func (e *cliEnv) close() {
	if err := e.db.Close(); err != nil {
		e.logger.Error("error closing database", slogx.Err(err))
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runIntrospect(_ context.Context, env *cliEnv, args []string, out io.Writer) error {
	md, err := env.manager.Introspect(args[0])
	if err != nil {
		return err
	}
	return printJSON(out, md)
}

func runIssue(ctx context.Context, env *cliEnv, args []string, out io.Writer) error {
	subject := domain.Subject{ID: args[0], Email: issueOpts.email, Role: issueOpts.role}
	rc := domain.RequestContext{DeviceFingerprint: issueOpts.device, SourceIP: issueOpts.ip}

	kind, err := domain.ParseKind(issueOpts.kind)
	if err != nil {
		return err
	}

	tok, err := env.manager.Issue(ctx, kind, subject, rc)
	if err != nil {
		return err
	}
	return printJSON(out, map[string]any{
		"token":      tok.Token,
		"kind":       tok.Kind,
		"token_id":   tok.TokenID,
		"expires_at": tok.ExpiresAt,
	})
}

func runRevoke(ctx context.Context, env *cliEnv, args []string, out io.Writer) error {
	if err := env.manager.Revoke(ctx, args[0]); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "revoked")
	return err
}

func runRevokeAll(ctx context.Context, env *cliEnv, args []string, out io.Writer) error {
	n, err := env.manager.RevokeAll(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(out, map[string]int64{"revoked": n})
}

func runSessions(ctx context.Context, env *cliEnv, args []string, out io.Writer) error {
	recs, err := env.manager.ListSessions(ctx, args[0])
	if err != nil {
		return err
	}

	views := make([]sessionView, 0, len(recs))
	for _, r := range recs {
		views = append(views, sessionView{
			TokenID:           r.TokenID,
			CreatedAt:         r.CreatedAt,
			ExpiresAt:         r.ExpiresAt,
			DeviceFingerprint: r.DeviceFingerprint,
			SourceIP:          r.SourceIP,
		})
	}
	return printJSON(out, views)
}

func runSweep(ctx context.Context, env *cliEnv, _ []string, out io.Writer) error {
	n, err := env.manager.Sweep(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, map[string]int64{"deleted": n})
}

// runGenSecret prints a fresh secret in the encoding LoadSecret accepts.
func runGenSecret(_ context.Context, _ *cliEnv, _ []string, out io.Writer) error {
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, secret)
	return err
}
