package models

import (
	"github.com/dmitrijs2005/fdaccounts/internal/common"
)

// Principal is whoever is behind a request: an authenticated account or
// nobody. It is a closed set; the only implementations are Authenticated
// and Anonymous.
type Principal interface {
	IsAuthenticated() bool
	Username() string
	HasPerm(perm string) bool
	HasModulePerms(label string) bool

	principal()
}

// Authenticated wraps an account that passed a backend.
type Authenticated struct {
	Account *Account
	// Backend is the name of the backend that authenticated the account.
	Backend string
}

func (Authenticated) principal() {}

func (p Authenticated) IsAuthenticated() bool { return true }

func (p Authenticated) Username() string { return p.Account.Username() }

func (p Authenticated) HasPerm(perm string) bool { return p.Account.HasPerm(perm) }

func (p Authenticated) HasModulePerms(label string) bool { return p.Account.HasModulePerms(label) }

// Anonymous is the unauthenticated principal. All values are equal.
type Anonymous struct{}

func (Anonymous) principal() {}

func (Anonymous) IsAuthenticated() bool { return false }

func (Anonymous) Username() string { return "" }

func (Anonymous) HasPerm(string) bool { return false }

func (Anonymous) HasModulePerms(string) bool { return false }

func (Anonymous) String() string { return "AnonymousUser" }

// Account always fails for the anonymous principal: it has no record.
func (Anonymous) Account() (*Account, error) { return nil, common.ErrorNotSupported }

// AccountOf returns the account behind p, or common.ErrorUnauthorized for
// the anonymous principal.
func AccountOf(p Principal) (*Account, error) {
	switch v := p.(type) {
	case Authenticated:
		return v.Account, nil
	case *Authenticated:
		return v.Account, nil
	default:
		return nil, common.ErrorUnauthorized
	}
}
