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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aussiebroadwan/sessionguard/internal/session/binding"
	httpapi "github.com/aussiebroadwan/sessionguard/internal/session/http"
	"github.com/aussiebroadwan/sessionguard/internal/session/service"
	"github.com/aussiebroadwan/sessionguard/internal/session/store"
	"github.com/aussiebroadwan/sessionguard/internal/session/store/drivers/postgres"
	"github.com/aussiebroadwan/sessionguard/internal/session/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application encapsulates the session service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	keys     *Keys
	registry *prometheus.Registry

	manager             *service.Manager
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sessiond",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	keys, err := LoadKeys(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}
	app.keys = keys

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("session service starting",
		"port", app.cfg.Port,
		"store", app.cfg.StoreDriver,
		"bind_device", app.cfg.BindDevice,
		"bind_ip", app.cfg.BindIP,
		"rotation", app.cfg.RotationEnabled,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down session service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slogx.Err(err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slogx.Err(err))
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slogx.Err(err))
		return err
	}

	app.logger.Info("session service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "store", app.cfg.StoreDriver)
	return nil
}

func (app *Application) initServices() error {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	manager, err := service.NewManager(
		app.cfg.ServiceOptions(app.keys),
		app.db.Ledger(),
		service.WithMetrics(service.NewMetrics(app.registry)),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	app.manager = manager

	app.housekeepingService = service.NewHousekeepingService(
		manager,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Sessions:          app.manager,
		Store:             app.db,
		Gatherer:          app.registry,
		Logger:            app.logger,
		BuildVersion:      BuildVersion,
		TrustProxyHeaders: app.cfg.TrustProxyHeaders,
		Limits:            app.cfg.Limits,
	})
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// OpenStore connects the configured ledger store and applies migrations.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch cfg.StoreDriver {
	case StorePostgres:
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqliteDSN(cfg.DatabaseFile))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// ServiceOptions converts the configuration into Manager options.
func (c Config) ServiceOptions(keys *Keys) service.Options {
	return service.Options{
		Issuer:          c.Issuer,
		Audience:        c.Audience,
		AccessKeys:      keys.Access,
		RefreshKeys:     keys.Refresh,
		AccessTTL:       c.AccessTTL,
		RefreshTTL:      c.RefreshTTL,
		VerificationTTL: c.VerificationTTL,
		ResetTTL:        c.ResetTTL,
		ClockSkew:       c.ClockSkew,
		Binding:         binding.Policy{Device: c.BindDevice, IP: c.BindIP},
		Rotation: service.RotationPolicy{
			Enabled:   c.RotationEnabled,
			Threshold: c.RotationThreshold,
		},
	}
}
