package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/blob"
	httpapi "github.com/aussiebroadwan/progressiq/internal/tracker/http"
	"github.com/aussiebroadwan/progressiq/internal/tracker/service"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store/drivers/sqlite"
	"github.com/aussiebroadwan/progressiq/pkg/jwtx"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application owns every long-lived dependency of the tracker service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	blobs      *blob.Local
	keyManager *jwtx.KeyManager

	tokenService        *service.TokenService
	accountService      *service.AccountService
	taskService         *service.TaskService
	inviteService       *service.InviteService
	reportService       *service.ReportService
	mfaService          *service.MFAService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds the application: database and migrations, keys, services and
// the HTTP server. Nothing is listening until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "progressiq",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	blobs, err := blob.NewLocal(cfg.UploadDir, cfg.UploadMaxBytes)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize upload storage: %w", err)
	}
	app.blobs = blobs

	km, err := InitKeys(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize keys: %w", err)
	}
	app.keyManager = km

	app.initServices()

	if err := app.bootstrapAdmin(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("progressiq starting",
		slog.Int("port", app.cfg.Port),
		slog.String("version", BuildVersion),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down progressiq...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slog.Any("error", err))
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slog.Any("error", err))
		return err
	}

	app.logger.Info("progressiq stopped")
	return nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied", slog.String("file", app.cfg.DatabaseFile))
	return nil
}

func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.TokenTTL,
	}
	app.inviteService = &service.InviteService{
		Store:   app.db,
		BaseURL: app.cfg.AppBaseURL,
		TTL:     app.cfg.InviteTTL,
	}
	app.accountService = &service.AccountService{
		Store:          app.db,
		Blobs:          app.blobs,
		Tokens:         app.tokenService,
		Invites:        app.inviteService,
		AdminSignupKey: app.cfg.AdminSignupKey,
	}
	app.taskService = &service.TaskService{Store: app.db, Blobs: app.blobs}
	app.reportService = &service.ReportService{Store: app.db}
	app.mfaService = &service.MFAService{Store: app.db, Issuer: "ProgressIQ"}
	app.bootstrapService = &service.BootstrapService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) bootstrapAdmin() error {
	if app.cfg.AdminEmail == "" || app.cfg.AdminPassword == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = slogx.WithContext(ctx, app.logger)

	created, err := app.bootstrapService.EnsureAdmin(ctx, app.cfg.AdminEmail, app.cfg.AdminUsername, app.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created {
		app.logger.Info("bootstrap admin created", slog.String("email", app.cfg.AdminEmail))
	}
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet(),
		app.keyManager.Verifier(),
		BuildVersion,
		app.db,
		app.blobs,
		app.logger,
	)

	router.AccountService = app.accountService
	router.TaskService = app.taskService
	router.InviteService = app.inviteService
	router.ReportService = app.reportService
	router.MFAService = app.mfaService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
