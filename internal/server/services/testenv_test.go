package services

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/dbx"
	"github.com/dmitrijs2005/fdaccounts/internal/logging"
	"github.com/dmitrijs2005/fdaccounts/internal/server/config"
	"github.com/dmitrijs2005/fdaccounts/internal/server/hashers"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
	"github.com/dmitrijs2005/fdaccounts/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/fdaccounts/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSystemEmail = "sys@example.com"

type testEnv struct {
	db       *sql.DB
	manager  repomanager.RepositoryManager
	hashers  *hashers.Registry
	cfg      *config.Config
	accounts *AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, m, err := repomanager.Open(ctx, "sqlite:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, m.RunMigrations(ctx, db))

	cfg := &config.Config{
		SystemUsername:              testSystemEmail,
		SecretKey:                   "test-secret",
		AccessTokenValidityDuration: time.Hour,
	}
	reg := hashers.NewRegistry(hashers.NewPBKDF2Hasher(1000))

	return &testEnv{
		db:       db,
		manager:  m,
		hashers:  reg,
		cfg:      cfg,
		accounts: NewAccountService(db, m, reg, cfg, logging.Nop{}),
	}
}

func (e *testEnv) countByEmail(t *testing.T, email string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM accounts WHERE email_address = ?`, email).Scan(&n))
	return n
}

// racingManager makes the first email lookup miss, as if another process
// inserted the row right after it.
type racingManager struct {
	repomanager.RepositoryManager
	missNext atomic.Bool
}

func (m *racingManager) Accounts(db dbx.DBTX) accounts.Repository {
	return &racingRepo{Repository: m.RepositoryManager.Accounts(db), m: m}
}

type racingRepo struct {
	accounts.Repository
	m *racingManager
}

func (r *racingRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if r.m.missNext.CompareAndSwap(true, false) {
		return nil, common.ErrorNotFound
	}
	return r.Repository.GetByEmail(ctx, email)
}
