package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/dbx"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
	"github.com/google/uuid"
)

// queries is the per-dialect SQL text used by SQLRepository. Every query
// lists the columns in the order of accountColumns.
type queries struct {
	save            string
	getByID         string
	getByEmail      string
	updateLastLogin string
	listCreatedBy   string
}

// SQLRepository implements Repository over database/sql. The dialect
// specifics are the query text and the driver error classification.
type SQLRepository struct {
	db       dbx.DBTX
	q        queries
	classify func(error) error
}

func (r *SQLRepository) Save(ctx context.Context, a *models.Account) error {
	_, err := r.db.ExecContext(ctx, r.q.save,
		a.ID, a.EmailAddress, a.Password,
		a.IsActive, a.IsStaff, a.IsSuperuser,
		a.CreatedAt, nullTime(a.DeactivatedAt), nullTime(a.LastLogin),
		a.CreatedByID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", r.classify(err))
	}

	// created_at and deactivated_at may differ from what was sent when the
	// row already existed.
	stored, err := r.getOne(ctx, r.q.getByID, a.ID)
	if err != nil {
		return err
	}
	a.CreatedAt = stored.CreatedAt
	a.DeactivatedAt = stored.DeactivatedAt
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.getOne(ctx, r.q.getByID, id)
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, r.q.getByEmail, email)
}

func (r *SQLRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.q.updateLastLogin, at, id)
	if err != nil {
		return fmt.Errorf("db error: %w", r.classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) ListCreatedBy(ctx context.Context, creatorID uuid.UUID) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, r.q.listCreatedBy, creatorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", r.classify(err))
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", r.classify(err))
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a             models.Account
		deactivatedAt sql.NullTime
		lastLogin     sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.EmailAddress, &a.Password,
		&a.IsActive, &a.IsStaff, &a.IsSuperuser,
		&a.CreatedAt, &deactivatedAt, &lastLogin,
		&a.CreatedByID,
	)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.DeactivatedAt = timePtr(deactivatedAt)
	a.LastLogin = timePtr(lastLogin)
	return &a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
