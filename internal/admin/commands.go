package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
)

func (a *App) bootstrap(ctx context.Context) error {
	system, err := a.accounts.Bootstrap(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "System account %s (%s) is ready.\n", system.EmailAddress, system.ID)
	return nil
}

// createSuperuser never prompts: the address comes from -email and the
// password from PasswordEnv.
func (a *App) createSuperuser(ctx context.Context, o commandOptions) error {
	if o.email == "" {
		return errors.New("-email is required")
	}
	password := a.getenv(PasswordEnv)
	if password == "" {
		return fmt.Errorf("%s must be set", PasswordEnv)
	}

	if _, err := a.accounts.Bootstrap(ctx); err != nil {
		return err
	}
	account, err := a.accounts.CreateSuperuser(ctx, o.email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Superuser %s created.\n", account.EmailAddress)
	return nil
}

func (a *App) changePassword(ctx context.Context, o commandOptions) error {
	if o.email == "" {
		return errors.New("-email is required")
	}
	account, err := a.accounts.GetByNaturalKey(ctx, o.email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("account %q does not exist", o.email)
		}
		return err
	}

	fmt.Fprintf(a.out, "Changing password for account %q\n", account.EmailAddress)
	password, err := getNewPassword(a.stdinFd, a.out)
	if err != nil {
		return err
	}
	if err := a.accounts.SetPassword(ctx, account, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Password changed successfully for account %q\n", account.EmailAddress)
	return nil
}

func (a *App) deactivate(ctx context.Context, o commandOptions) error {
	if o.email == "" {
		return errors.New("-email is required")
	}
	account, err := a.accounts.GetByNaturalKey(ctx, o.email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("account %q does not exist", o.email)
		}
		return err
	}
	if err := a.accounts.Deactivate(ctx, account); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account %s deactivated at %s.\n", account.EmailAddress, account.DeactivatedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
