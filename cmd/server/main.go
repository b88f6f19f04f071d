package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "smy-nav-backend/internal/api/http"
	"smy-nav-backend/internal/cache"
	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository/postgres"
	"smy-nav-backend/internal/security"
	"smy-nav-backend/internal/service"
	"smy-nav-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting SMY-NAV backend...", "log_level", cfg.Log.Level, "environment", cfg.Server.Environment)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)
	tx := store.Transactor()

	// Initialize Storage
	files, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	local, _ := files.(*storage.LocalStorage)
	logger.Info("File storage ready", "type", cfg.Storage.Type)

	ctx := context.Background()
	statsCache := cache.New(ctx, cfg.Redis)
	emailSvc := service.NewEmailService(cfg.Email)
	tokens := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	catalog := cfg.Training

	// Initialize Services
	invoiceSvc := service.NewInvoiceService(tx, store.InvoiceRepository, store.ParticipantRepository, store.AgencyRepository,
		store.UserRepository, store.PaymentHistoryRepository, files, emailSvc, catalog)
	batchSvc := service.NewBatchService(tx, store.BatchRepository, store.ParticipantRepository, catalog, cfg.Batch)
	participantSvc := service.NewParticipantService(tx, store.ParticipantRepository, store.AgencyRepository,
		store.PaymentHistoryRepository, invoiceSvc, batchSvc, files, catalog)
	authSvc := service.NewAuthService(tx, store.UserRepository, store.AgencyRepository, participantSvc, tokens)
	paymentSvc := service.NewPaymentService(tx, store.ParticipantRepository, store.PaymentHistoryRepository,
		store.UserRepository, files, emailSvc)
	scheduleSvc := service.NewScheduleService(tx, store.ScheduleRepository, store.ParticipantRepository, catalog)
	dashboardSvc := service.NewDashboardService(store.DashboardRepository, statsCache, time.Duration(cfg.Redis.StatsTTLSeconds)*time.Second)
	agencySvc := service.NewAgencyService(store.AgencyRepository)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Services: httpapi.Services{
			Auth:         authSvc,
			Agencies:     agencySvc,
			Participants: participantSvc,
			Payments:     paymentSvc,
			Invoices:     invoiceSvc,
			Schedules:    scheduleSvc,
			Batches:      batchSvc,
			Dashboard:    dashboardSvc,
		},
		Tokens:      tokens,
		Policy:      security.DefaultPolicy,
		Catalog:     catalog,
		Limits:      storage.NewLimits(cfg.Storage),
		Local:       local,
		DB:          db,
		Environment: cfg.Server.Environment,
		Production:  cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
		ErrorLog:     logger.StdLogger("http", slog.LevelError),
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server stopped")
}
