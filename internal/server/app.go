// Package server wires the account store, the authentication chain and the
// gRPC endpoint together and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/fdaccounts/internal/logging"
	"github.com/dmitrijs2005/fdaccounts/internal/metrics"
	"github.com/dmitrijs2005/fdaccounts/internal/server/backends"
	"github.com/dmitrijs2005/fdaccounts/internal/server/config"
	"github.com/dmitrijs2005/fdaccounts/internal/server/hashers"
	"github.com/dmitrijs2005/fdaccounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fdaccounts/internal/server/services"

	gs "github.com/dmitrijs2005/fdaccounts/internal/server/grpc"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	accountService *services.AccountService
	sessionService *services.SessionService
}

// NewApp validates c, opens and migrates the database and makes sure the
// system account exists. A misconfigured system username stops startup here.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	// before Bootstrap, which may count the system account
	metrics.Register()

	h, err := hashers.NewDefaultRegistry(c.PasswordHasher)
	if err != nil {
		return nil, err
	}

	db, m, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	as := services.NewAccountService(db, m, h, c, logger)
	if _, err := as.Bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	chain := backends.NewChain(logger, backends.NewModelBackend(as, h, logger))
	ss := services.NewSessionService(as, chain, c, logger)

	return &App{config: c, logger: logger, db: db, accountService: as, sessionService: ss}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.accountService, app.sessionService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)

	if err := metrics.Serve(ctx, app.config.MetricsAddr); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "close database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
