package accounts

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var postgresQueries = queries{
	save: `INSERT INTO accounts (id, email_address, password, is_active, is_staff, is_superuser, created_at, deactivated_at, last_login, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   email_address = EXCLUDED.email_address,
		   password = EXCLUDED.password,
		   is_active = EXCLUDED.is_active,
		   is_staff = EXCLUDED.is_staff,
		   is_superuser = EXCLUDED.is_superuser,
		   deactivated_at = COALESCE(accounts.deactivated_at, EXCLUDED.deactivated_at),
		   last_login = EXCLUDED.last_login,
		   created_by = EXCLUDED.created_by`,

	getByID: `SELECT id, email_address, password, is_active, is_staff, is_superuser, created_at, deactivated_at, last_login, created_by
		 FROM accounts
		 WHERE id = $1`,

	getByEmail: `SELECT id, email_address, password, is_active, is_staff, is_superuser, created_at, deactivated_at, last_login, created_by
		 FROM accounts
		 WHERE email_address = $1`,

	updateLastLogin: `UPDATE accounts SET last_login = $1
		 WHERE id = $2`,

	listCreatedBy: `SELECT id, email_address, password, is_active, is_staff, is_superuser, created_at, deactivated_at, last_login, created_by
		 FROM accounts
		 WHERE created_by = $1
		 ORDER BY created_at, email_address`,
}

// NewPostgresRepository returns a Repository for the pgx driver.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries, classify: classifyPostgres}
}

func classifyPostgres(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", common.ErrorReferential, pgErr.ConstraintName)
	}
	return err
}
