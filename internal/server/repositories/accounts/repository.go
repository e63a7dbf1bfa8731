// Package accounts persists account records.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
	"github.com/google/uuid"
)

// Repository is the account storage contract.
//
// Save is an upsert keyed on the id: created_at is only written by the first
// insert and deactivated_at can never be cleared once set. Unique email
// conflicts surface as common.ErrorAlreadyExists, broken creator references
// as common.ErrorReferential and missing rows as common.ErrorNotFound.
type Repository interface {
	Save(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ListCreatedBy(ctx context.Context, creatorID uuid.UUID) ([]*models.Account, error)
}
