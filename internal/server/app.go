// Package server initializes and runs the backend application: it wires the
// database, object storage, and services together and hosts the HTTP API
// with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/mzheleznov/profilehub/internal/logging"
	"github.com/mzheleznov/profilehub/internal/server/config"
	"github.com/mzheleznov/profilehub/internal/server/httpapi"
	"github.com/mzheleznov/profilehub/internal/server/repositories/repomanager"
	"github.com/mzheleznov/profilehub/internal/server/services"
)

// App bundles the configured components of a running server.
type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.Server
}

// NewApp builds the application from config: database connection, schema
// migrations, services, and the HTTP API server.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	identity := services.NewIdentityService(db, rm, cfg)
	storage := services.NewStorageService(cfg)
	profile := services.NewProfileService(db, rm, storage)

	api := httpapi.NewServer(cfg.EndpointAddr, logger, identity, profile)

	return &App{config: cfg, logger: logger, db: db, api: api}, nil
}

// Run serves until an OS signal or a server error, then shuts down.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddr)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.api.Run(ctx)
	})

	err := g.Wait()

	if closeErr := app.db.Close(); closeErr != nil {
		app.logger.Error(ctx, "error closing db", "error", closeErr)
	}

	return err
}
