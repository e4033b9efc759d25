package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OpenNSW/tariff/internal/auth"
	"github.com/OpenNSW/tariff/internal/config"
	"github.com/OpenNSW/tariff/internal/database"
	"github.com/OpenNSW/tariff/internal/middleware"
	"github.com/OpenNSW/tariff/internal/reports"
	"github.com/OpenNSW/tariff/internal/tariff/engine"
	"github.com/OpenNSW/tariff/internal/tariff/repository"
	"github.com/OpenNSW/tariff/internal/tariff/router"
	"github.com/OpenNSW/tariff/internal/tariff/service"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	gin.SetMode(gin.ReleaseMode)

	slog.Info("configuration loaded successfully",
		"db_driver", cfg.Database.Driver,
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
	)

	slog.Info("CORS configuration",
		"allowed_origins", cfg.CORS.AllowedOrigins,
		"allowed_methods", cfg.CORS.AllowedMethods,
		"allowed_headers", cfg.CORS.AllowedHeaders,
		"allow_credentials", cfg.CORS.AllowCredentials,
		"max_age", cfg.CORS.MaxAge,
	)

	slog.Info("tariff configuration",
		"port", cfg.Server.Port,
		"base_currency", cfg.Tariff.BaseCurrency,
		"persist_calculations", cfg.Tariff.PersistCalculations,
		"archive_reports", cfg.Tariff.ArchiveReports,
		"storage_type", cfg.Storage.Type,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Perform health check
	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	// Repositories back the calculator's stores
	htsCodes := repository.NewHTSCodeRepository(db)
	rates := repository.NewRateRepository(db)
	agreements := repository.NewAgreementRepository(db)
	exchangeRates := repository.NewExchangeRateRepository(db)
	calculationRecords := repository.NewCalculationRepository(db)

	calculator := engine.NewCalculator(htsCodes, rates, agreements, exchangeRates,
		engine.WithBaseCurrency(cfg.Tariff.BaseCurrency),
	)

	// Report archive is optional
	var reportService *reports.ReportService
	if cfg.Tariff.ArchiveReports {
		driver, err := reports.NewStorageFromConfig(context.Background(), cfg.Storage)
		if err != nil {
			log.Fatalf("failed to create report storage: %v", err)
		}
		reportService = reports.NewReportService(driver)
	}

	var archiver service.ReportArchiver
	if reportService != nil {
		archiver = reportService
	}
	calculationService := service.NewCalculationService(calculator, calculationRecords, archiver, service.Options{
		PersistCalculations: cfg.Tariff.PersistCalculations,
		ArchiveReports:      cfg.Tariff.ArchiveReports,
	})
	catalogService := service.NewCatalogService(htsCodes, agreements)

	// Set up HTTP routes
	tariffRouter := router.NewTariffRouter(calculationService, catalogService)
	api := router.NewEngine(tariffRouter, func(ctx context.Context) error {
		return database.HealthCheck(db)
	})
	if reportService != nil && cfg.Storage.Type == "local" && cfg.Storage.LocalPublicURL != "" {
		router.RegisterReportFiles(api, cfg.Storage.LocalPublicURL, reportService)
	}

	// Wrap handler with auth and CORS middleware
	authService := auth.NewAuthService(db)
	handler := middleware.CORS(&cfg.CORS)(auth.Middleware(authService, auth.NewTokenExtractor())(api))

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal
	<-quit
	slog.Info("shutting down server...")

	// Create a context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	slog.Info("server stopped")
}
