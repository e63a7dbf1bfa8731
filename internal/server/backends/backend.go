// Package backends authenticates credentials against the account store.
//
// A Backend turns credentials into an account, or into nothing. Chain tries
// a list of backends in order and hands out principals.
package backends

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
)

// Credential keys understood by ModelBackend.
const (
	KeyUsername     = "username"
	KeyEmailAddress = "email_address"
	KeyPassword     = "password"
)

// ErrMissingIdentity means the credentials carry no identity key at all.
// It is a caller error, unlike an unknown or empty identity which is an
// ordinary miss. Chain skips backends that return it.
var ErrMissingIdentity = errors.New("credentials carry neither username nor email_address")

// Credentials are the key/value pairs presented for authentication.
type Credentials map[string]string

// Backend is one link of the authentication chain.
//
// Authenticate and GetUser return (nil, nil) when there is no match;
// errors are reserved for caller mistakes and storage failures.
type Backend interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (*models.Account, error)
	GetUser(ctx context.Context, id string) (*models.Account, error)
}
