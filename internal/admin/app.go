// Package admin implements the maintenance commands run against the account
// database directly: creating superusers, changing passwords, deactivating
// accounts and bootstrapping the system account.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/fdaccounts/internal/flagx"
	"github.com/dmitrijs2005/fdaccounts/internal/logging"
	"github.com/dmitrijs2005/fdaccounts/internal/server/config"
	"github.com/dmitrijs2005/fdaccounts/internal/server/hashers"
	"github.com/dmitrijs2005/fdaccounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fdaccounts/internal/server/services"
)

// PasswordEnv supplies the password to createsuperuser.
const PasswordEnv = "FDACCOUNTS_SUPERUSER_PASSWORD"

var ErrUnknownCommand = errors.New("unknown command")

type App struct {
	db       *sql.DB
	accounts *services.AccountService

	out     io.Writer
	stdinFd int
	getenv  func(string) string
}

// NewApp opens and migrates the database described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h, err := hashers.NewDefaultRegistry(cfg.PasswordHasher)
	if err != nil {
		return nil, err
	}

	db, m, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	return &App{
		db:       db,
		accounts: services.NewAccountService(db, m, h, cfg, logger),
		out:      os.Stdout,
		stdinFd:  int(os.Stdin.Fd()),
		getenv:   os.Getenv,
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

// Run executes the command named by args[0] with the remaining args.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: expected one of bootstrap, createsuperuser, changepassword, deactivate", ErrUnknownCommand)
	}

	opts := parseCommandFlags(args[1:])

	switch args[0] {
	case "bootstrap":
		return a.bootstrap(ctx)
	case "createsuperuser":
		return a.createSuperuser(ctx, opts)
	case "changepassword":
		return a.changePassword(ctx, opts)
	case "deactivate":
		return a.deactivate(ctx, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
}

type commandOptions struct {
	email string
}

// parseCommandFlags reads the command flags, leaving the server
// configuration flags to config.LoadConfig.
func parseCommandFlags(args []string) commandOptions {
	var o commandOptions

	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.email, "e", "", "email address")
	fs.StringVar(&o.email, "email", "", "email address")
	_ = fs.Parse(flagx.FilterArgs(args, []string{"-e", "-email"}))

	return o
}
