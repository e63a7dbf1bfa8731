package accounts

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/dbx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteQueries = queries{
	save: `INSERT INTO accounts (id, email_address, password, is_active, is_staff, is_superuser, created_at, deactivated_at, last_login, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   email_address = excluded.email_address,
		   password = excluded.password,
		   is_active = excluded.is_active,
		   is_staff = excluded.is_staff,
		   is_superuser = excluded.is_superuser,
		   deactivated_at = COALESCE(accounts.deactivated_at, excluded.deactivated_at),
		   last_login = excluded.last_login,
		   created_by = excluded.created_by`,

	getByID: `SELECT id, email_address, password, is_active, is_staff, is_superuser, created_at, deactivated_at, last_login, created_by
		 FROM accounts
		 WHERE id = ?`,

	getByEmail: `SELECT id, email_address, password, is_active, is_staff, is_superuser, created_at, deactivated_at, last_login, created_by
		 FROM accounts
		 WHERE email_address = ?`,

	updateLastLogin: `UPDATE accounts SET last_login = ?
		 WHERE id = ?`,

	listCreatedBy: `SELECT id, email_address, password, is_active, is_staff, is_superuser, created_at, deactivated_at, last_login, created_by
		 FROM accounts
		 WHERE created_by = ?
		 ORDER BY created_at, email_address`,
}

// NewSQLiteRepository returns a Repository for the modernc.org/sqlite
// driver. Referential checks need the foreign_keys pragma on the
// connection.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries, classify: classifySQLite}
}

func classifySQLite(err error) error {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return err
	}
	switch sqErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", common.ErrorAlreadyExists, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", common.ErrorReferential, err)
	}
	return err
}
