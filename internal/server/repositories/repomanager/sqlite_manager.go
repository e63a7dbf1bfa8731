package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fdaccounts/internal/dbx"
	"github.com/dmitrijs2005/fdaccounts/internal/server/migrations"
	"github.com/dmitrijs2005/fdaccounts/internal/server/repositories/accounts"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories, used for tests
// and single-node deployments.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Dialect() goose.Dialect { return goose.DialectSQLite3 }

func (m *SQLiteRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, goose.DialectSQLite3, db, migrations.Migrations, migrations.SQLiteDir)
}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}
