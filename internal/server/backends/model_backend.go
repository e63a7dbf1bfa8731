package backends

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/logging"
	"github.com/dmitrijs2005/fdaccounts/internal/server/hashers"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
	"github.com/google/uuid"
)

// ModelBackendName identifies ModelBackend in tokens and logs.
const ModelBackendName = "model"

// AccountStore is the part of the account store ModelBackend needs.
type AccountStore interface {
	GetByNaturalKey(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	SetPassword(ctx context.Context, a *models.Account, raw string) error
}

// ModelBackend checks an email address and password against the stored
// accounts.
type ModelBackend struct {
	store   AccountStore
	hashers *hashers.Registry
	logger  logging.Logger
}

func NewModelBackend(store AccountStore, h *hashers.Registry, logger logging.Logger) *ModelBackend {
	return &ModelBackend{store: store, hashers: h, logger: logger.With("module", "backends", "backend", ModelBackendName)}
}

func (b *ModelBackend) Name() string { return ModelBackendName }

// Authenticate returns the account identified by the username key, or the
// email_address key when username is absent, if the password matches and
// the account may authenticate.
//
// An unknown identity still costs one password hash, so response time does
// not reveal whether the account exists. A password encoded with stale
// parameters is re-encoded after a successful check.
func (b *ModelBackend) Authenticate(ctx context.Context, creds Credentials) (*models.Account, error) {
	identity, ok := creds[KeyUsername]
	if !ok {
		identity, ok = creds[KeyEmailAddress]
	}
	if !ok {
		return nil, ErrMissingIdentity
	}
	password, ok := creds[KeyPassword]
	if !ok {
		return nil, nil
	}

	a, err := b.store.GetByNaturalKey(ctx, identity)
	if errors.Is(err, common.ErrorNotFound) {
		b.hashers.RunDefault(password)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	matched, mustUpdate := b.hashers.Check(password, a.Password)
	if !matched || !b.CanAuthenticate(a) {
		return nil, nil
	}

	if mustUpdate {
		if err := b.store.SetPassword(ctx, a, password); err != nil {
			b.logger.Warn(ctx, "password re-encoding failed", "id", a.ID, "error", err)
		} else {
			b.logger.Debug(ctx, "password re-encoded", "id", a.ID, "algorithm", b.hashers.Preferred().Algorithm())
		}
	}
	return a, nil
}

// CanAuthenticate rejects inactive accounts.
func (b *ModelBackend) CanAuthenticate(a *models.Account) bool {
	return a.IsActive
}

// GetUser returns the account with the given id if it exists and may
// authenticate. Malformed ids are a miss.
func (b *ModelBackend) GetUser(ctx context.Context, id string) (*models.Account, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	a, err := b.store.GetByID(ctx, parsed)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !b.CanAuthenticate(a) {
		return nil, nil
	}
	return a, nil
}

func (b *ModelBackend) HasPerm(a *models.Account, perm string) bool {
	return b.CanAuthenticate(a) && a.HasPerm(perm)
}

func (b *ModelBackend) HasModulePerms(a *models.Account, label string) bool {
	return b.CanAuthenticate(a) && a.HasModulePerms(label)
}
