// Package app wires configuration, storage, the bank client and the web server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/config"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/interaction"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/reconcile"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/database"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/database/inmemory"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/database/mysql"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams/miaapi"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/locking"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/server"
)

const shutdownTimeout = 5 * time.Second

type Application struct {
	Config     *config.Application
	Repository database.Repository
	Interactor interaction.Interactor
	Reconciler *reconcile.Scheduler

	logger logging.Logger
}

// LoadConfiguration reads the configuration file and sets up logging accordingly.
func LoadConfiguration(path string) (*config.Application, error) {
	logger := logging.NoCtx()

	conf, err := config.LoadConfiguration(path, logger.Error)
	if err != nil {
		return nil, err
	}

	logging.Setup(conf.Logging.Severity, conf.Logging.Style == config.ECS)
	if conf.Mia.Sandbox {
		logging.NoCtx().Warn("running against the maib MIA sandbox, no real money is moved")
	}
	return conf, nil
}

// OpenRepository connects to the configured database and migrates the schema.
func OpenRepository(conf *config.Application, logger logging.Logger) (database.Repository, error) {
	var repo database.Repository
	switch conf.Database.Use {
	case config.Mysql:
		logger.Info("connecting to mysql database %s", conf.Database.Database)
		r, err := mysql.NewMySQLConnector(conf.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo = r
	default:
		logger.Warn("using in-memory database, orders are lost on restart")
		repo = inmemory.NewInMemoryProvider()
	}

	if err := repo.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}

func New(conf *config.Application) (*Application, error) {
	logger := logging.NoCtx()

	repo, err := OpenRepository(conf, logger)
	if err != nil {
		return nil, err
	}

	locker := locking.New(conf.Redis.Address, conf.Redis.Password, conf.Redis.DB, conf.Redis.LockTTL(), logger)

	miaClient, err := miaapi.New(miaapi.Options{
		BaseUrl:      miaapi.BaseUrlFor(conf.Mia.Sandbox, conf.Mia.BaseURL),
		Timeout:      conf.Mia.RequestTimeout(),
		DebugLogging: conf.Mia.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up mia api client: %w", err)
	}

	i, err := interaction.NewServiceInteractor(repo, miaClient, locker, conf.Mia, logger)
	if err != nil {
		return nil, err
	}

	reconciler, err := reconcile.New(conf.Reconciliation.Schedule, i, logger)
	if err != nil {
		return nil, err
	}

	return &Application{
		Config:     conf,
		Repository: repo,
		Interactor: i,
		Reconciler: reconciler,
		logger:     logger,
	}, nil
}

// Serve blocks until ctx is cancelled, then shuts the server down gracefully.
func (a *Application) Serve(ctx context.Context) error {
	handler := server.CreateRouter(a.Interactor, a.Config)
	srv := server.NewServer(ctx, &a.Config.Server, handler)

	a.Reconciler.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("stopping services now")
	case serveErr = <-errCh:
		a.logger.Error("server failed: %v", serveErr)
	}

	tCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(tCtx); err != nil {
		a.logger.Error("couldn't shutdown server gracefully: %v", err)
		if serveErr == nil {
			serveErr = err
		}
	}
	a.Reconciler.Stop(tCtx)

	return serveErr
}
