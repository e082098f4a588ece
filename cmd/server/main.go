// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "escpos-service/docs"
	"escpos-service/internal/config"
	"escpos-service/internal/database"
	"escpos-service/internal/handler"
	"escpos-service/internal/repository"
	"escpos-service/internal/routes"
	"escpos-service/internal/service"
	"escpos-service/internal/utils"
)

const cleanupInterval = time.Hour

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	// Background work is cancelled through this context
	ctx    context.Context
	cancel context.CancelFunc

	// Services
	eventBus       *service.EventBus
	profileService *service.ProfileService
	printerService *service.PrinterService
	printService   *service.PrintService
	discovery      *service.DiscoveryService

	// Repositories
	printerRepo repository.PrinterRepository
	jobRepo     repository.JobRepository
}

// @title ESC/POS Print Service API
// @version 1.0.0
// @description Composes ESC/POS command streams from print documents and delivers them to receipt printers

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8084
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "escpos-service")
	serviceLogger.LogServiceStart(cfg.App.Version,
		zap.String("environment", cfg.App.Environment),
		zap.Bool("database", cfg.Database.Enabled),
	)

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeRepositories()

	if err := app.initializeServices(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initializeServer()
	return app, nil
}

// initializeDatabase connects to PostgreSQL and runs migrations when enabled
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Database disabled, using in-memory repositories")
		return nil
	}

	db, err := database.Connect(app.ctx, app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	if app.config.Database.AutoMigrate {
		migrator := database.NewMigrator(db, app.logger)
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
		if app.config.Database.JobsRetention > 0 {
			if _, err := migrator.RunCleanup(app.config.Database.JobsRetention); err != nil {
				app.logger.Warn("Startup job cleanup failed", zap.Error(err))
			}
		}
	}

	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() {
	if app.database == nil {
		app.printerRepo = repository.NewMemoryPrinterRepository()
		app.jobRepo = repository.NewMemoryJobRepository()
		return
	}
	app.printerRepo = repository.NewPrinterRepository(app.database, app.logger)
	app.jobRepo = repository.NewJobRepository(app.database, app.logger)
}

// initializeServices creates service instances
func (app *Application) initializeServices() error {
	registry, err := service.LoadRegistry(app.config.Printer.ProfilesFile)
	if err != nil {
		return err
	}

	app.eventBus = service.NewEventBus(app.config.Printer.EventBufferSize, app.logger)
	app.profileService = service.NewProfileService(registry, app.config.Printer.ProfilesFile, app.eventBus, app.logger)
	app.printerService = service.NewPrinterService(app.printerRepo, app.profileService, nil, app.eventBus, app.config, app.logger)

	app.printService, err = service.NewPrintService(app.jobRepo, app.printerService, app.profileService, app.eventBus, app.config, app.logger)
	if err != nil {
		return err
	}

	scanners := service.NewScannerManager(&app.config.Discovery, app.logger)
	app.discovery = service.NewDiscoveryService(scanners, app.profileService, app.printerRepo, app.config, app.logger)

	app.logger.Info("Services initialized successfully",
		zap.String("profiles_version", app.profileService.Version()),
		zap.Int("profiles", len(app.profileService.List())),
	)
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	var db handler.DatabaseChecker
	if app.database != nil {
		db = app.database
	}

	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		db,
		app.profileService,
		app.printerService,
		app.printService,
		app.discovery,
		app.eventBus,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// startBackgroundServices starts the event bus, print workers and cleanup
func (app *Application) startBackgroundServices() {
	go app.eventBus.Run(app.ctx)
	app.printService.Start(app.ctx)
	go app.startCleanupService()

	app.logger.Info("Background services started")
}

// startCleanupService prunes old print jobs
func (app *Application) startCleanupService() {
	if app.config.Database.JobsRetention <= 0 {
		return
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started",
		zap.Duration("retention", app.config.Database.JobsRetention),
	)

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(app.ctx, 10*time.Minute)
			if _, err := app.printService.CleanupJobs(ctx); err != nil {
				app.logger.Error("Failed to clean up old jobs", zap.Error(err))
			}
			cancel()
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown stops accepting requests, drains print workers and closes resources
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "escpos-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.cancel()
	app.printService.Stop()
	app.logger.Info("Print workers stopped")

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start runs the HTTP server until a shutdown signal arrives
func (app *Application) Start() error {
	app.startBackgroundServices()

	go func() {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.waitForShutdown()
	return nil
}
