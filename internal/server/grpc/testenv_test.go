package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/fdaccounts/internal/logging"
	"github.com/dmitrijs2005/fdaccounts/internal/server/backends"
	"github.com/dmitrijs2005/fdaccounts/internal/server/config"
	"github.com/dmitrijs2005/fdaccounts/internal/server/hashers"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
	"github.com/dmitrijs2005/fdaccounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fdaccounts/internal/server/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

const (
	testSystemEmail = "sys@example.com"
	testRootEmail   = "root@example.com"
	testRootPass    = "r00t-pass"
)

type testEnv struct {
	accounts *services.AccountService
	sessions *services.SessionService
	server   *GRPCServer
	system   *models.Account
	root     *models.Account
	lis      *bufconn.Listener
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

	as := services.NewAccountService(db, m, reg, cfg, logging.Nop{})
	system, err := as.Bootstrap(ctx)
	require.NoError(t, err)

	chain := backends.NewChain(logging.Nop{}, backends.NewModelBackend(as, reg, logging.Nop{}))
	ss := services.NewSessionService(as, chain, cfg, logging.Nop{})

	root, err := as.CreateSuperuser(ctx, testRootEmail, testRootPass)
	require.NoError(t, err)

	env := &testEnv{
		accounts: as,
		sessions: ss,
		server:   NewGRPCServer("bufnet", logging.Nop{}, as, ss),
		system:   system,
		root:     root,
		lis:      bufconn.Listen(1 << 20),
	}

	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- env.server.Serve(srvCtx, env.lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return env
}

// client returns a fresh client connected to the in-memory server.
func (e *testEnv) client(t *testing.T) (*Client, *grpc.ClientConn) {
	t.Helper()
	c, conn, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return e.lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return c, conn
}

// rootClient returns a client logged in as the superuser.
func (e *testEnv) rootClient(t *testing.T) *Client {
	t.Helper()
	c, _ := e.client(t)
	_, err := c.Login(context.Background(), map[string]string{
		backends.KeyUsername: testRootEmail,
		backends.KeyPassword: testRootPass,
	})
	require.NoError(t, err)
	return c
}
