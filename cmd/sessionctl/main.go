// sessionctl is the operator tool for the session ledger. It reads the same
// environment as sessiond and talks to the store directly, so it works while
// the service is down.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags override the matching environment variables.
type globalFlags struct {
	store        string
	databaseFile string
	databaseURL  string
	env          string
}

func (g *globalFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.store, "store", "", "ledger store driver: sqlite or postgres (env SESSION_STORE_DRIVER)")
	fs.StringVar(&g.databaseFile, "database-file", "", "SQLite database path (env SESSION_DATABASE_FILE)")
	fs.StringVar(&g.databaseURL, "database-url", "", "Postgres connection URL (env SESSION_DATABASE_URL)")
	fs.StringVar(&g.env, "env", "", "environment name; dev allows generated secrets (env ENV)")
}

// lookup layers the flags over base.
func (g *globalFlags) lookup(base func(string) string) func(string) string {
	overrides := map[string]string{
		"SESSION_STORE_DRIVER":  g.store,
		"SESSION_DATABASE_FILE": g.databaseFile,
		"SESSION_DATABASE_URL":  g.databaseURL,
		"ENV":                   g.env,
	}
	return func(key string) string {
		if v := overrides[key]; v != "" {
			return v
		}
		return base(key)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	var global globalFlags

	flagSet := pflag.NewFlagSet("sessionctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(stderr)
	global.addFlags(flagSet)
	flagSet.Usage = func() { printHelp(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return pflag.ErrHelp
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (run sessionctl --help)", rest[0])
	}

	sub := pflag.NewFlagSet("sessionctl "+rest[0], pflag.ContinueOnError)
	sub.SetOutput(stderr)
	if cmd.flags != nil {
		cmd.flags(sub)
	}
	if err := sub.Parse(rest[1:]); err != nil {
		return err
	}
	if sub.NArg() != cmd.args {
		return fmt.Errorf("%s: expected %d argument(s), got %d", rest[0], cmd.args, sub.NArg())
	}

	if cmd.standalone {
		return cmd.run(ctx, nil, sub.Args(), stdout)
	}

	env, err := openEnv(ctx, global.lookup(getenv), stderr)
	if err != nil {
		return err
	}
	defer env.close()

	return cmd.run(ctx, env, sub.Args(), stdout)
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `sessionctl inspects and manages session tokens.

Usage:
  sessionctl [flags] <command> [args]

Commands:
  introspect <token>     decode a token without verifying it (untrusted)
  issue <subject>        issue a token (--kind, --email, --role, --device, --ip)
  revoke <token>         revoke a refresh token; unknown tokens succeed
  revoke-all <subject>   revoke every refresh token of a subject
  sessions <subject>     list a subject's active refresh tokens
  sweep                  delete ledger records past their expiry
  gen-secret             print a random 256 bit secret for a secret file

Flags:
`)
	flagSet.PrintDefaults()
}
