// Command clinicauth-admin provisions a clinicauth installation.
//
//	clinicauth-admin migrate
//	clinicauth-admin create-first-admin -name "Ada" -email ada@clinic.example
//	clinicauth-admin create-account -role doctor -email doc@clinic.example -name "Dr Lee"
//
// Passwords are read from -password or CLINICAUTH_PASSWORD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/internal/appconfig"
	"github.com/MrEthical07/clinicauth/notify"
	"github.com/MrEthical07/clinicauth/store/pgstore"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "clinicauth-admin: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: clinicauth-admin [-config file] <migrate|create-first-admin|create-account> [flags]")
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("clinicauth-admin", flag.ContinueOnError)
	configPath := global.String("config", "", "path to a YAML config file")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		usage(out)
		return errors.New("missing command")
	}

	cfg, err := appconfig.Load(*configPath, ".env.local", ".env")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	backends, err := cfg.Connect(ctx)
	if err != nil {
		return err
	}
	defer backends.Close()

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "migrate":
		return migrate(backends, out)
	case "create-first-admin":
		return createFirstAdmin(ctx, &cfg, backends, rest, out)
	case "create-account":
		return createAccount(ctx, &cfg, backends, rest, out)
	default:
		usage(out)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func migrate(b *appconfig.Backends, out io.Writer) error {
	if b.DB == nil {
		fmt.Fprintln(out, "redis store: nothing to migrate")
		return nil
	}
	if err := pgstore.Migrate(b.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(out, "migrated account tables")
	return nil
}

func buildEngine(cfg *appconfig.Config, b *appconfig.Backends) (*clinicauth.Engine, error) {
	engCfg := cfg.Engine()
	engCfg.Notify.Async = false
	return clinicauth.New().
		WithConfig(engCfg).
		WithRedis(b.Redis).
		WithAccountStore(b.Store).
		WithNotifier(notify.NoOpSender{}).
		Build()
}

func password(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CLINICAUTH_PASSWORD")
}

func createFirstAdmin(ctx context.Context, cfg *appconfig.Config, b *appconfig.Backends, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-first-admin", flag.ContinueOnError)
	name := fs.String("name", "", "admin display name")
	email := fs.String("email", "", "admin email")
	pw := fs.String("password", "", "admin password (or CLINICAUTH_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	engine, err := buildEngine(cfg, b)
	if err != nil {
		return err
	}
	defer engine.Close()

	acct, err := engine.CreateFirstAdmin(ctx, *name, *email, password(*pw))
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	fmt.Fprintf(out, "created admin %s (%s)\n", acct.Email, acct.ID)
	return nil
}

func createAccount(ctx context.Context, cfg *appconfig.Config, b *appconfig.Backends, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-account", flag.ContinueOnError)
	roleName := fs.String("role", "", "doctor or patient")
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	pw := fs.String("password", "", "password; empty creates a passwordless account")
	if err := fs.Parse(args); err != nil {
		return err
	}

	role, err := account.ParseRole(*roleName)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg, b)
	if err != nil {
		return err
	}
	defer engine.Close()

	acct, err := engine.CreateAccount(ctx, clinicauth.CreateAccountRequest{
		Role:     role,
		Email:    *email,
		Name:     *name,
		Password: password(*pw),
	})
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	fmt.Fprintf(out, "created %s %s (%s)\n", acct.Role, acct.Email, acct.ID)
	return nil
}
