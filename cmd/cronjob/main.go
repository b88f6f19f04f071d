package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/jobs"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository/postgres"
	"smy-nav-backend/internal/scheduler"
	"smy-nav-backend/internal/service"
	"smy-nav-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'mark-overdue-invoices', 'all-nightly', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting SMY-NAV cronjob runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	tx := store.Transactor()

	files, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	emailSvc := service.NewEmailService(cfg.Email)

	jobServices := &jobs.Services{
		Invoices: service.NewInvoiceService(tx, store.InvoiceRepository, store.ParticipantRepository, store.AgencyRepository,
			store.UserRepository, store.PaymentHistoryRepository, files, emailSvc, cfg.Training),
		Batches: service.NewBatchService(tx, store.BatchRepository, store.ParticipantRepository, cfg.Training, cfg.Batch),
	}
	if local, ok := files.(*storage.LocalStorage); ok {
		jobServices.Staging = local
	}

	jobRunner := jobs.NewJobRunner(jobServices, cfg)

	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped")
}

var jobNames = []string{
	"mark-overdue-invoices",
	"send-invoice-reminders",
	"promote-ready-batches",
	"cleanup-staged-uploads",
	"all-nightly",
	"all",
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "mark-overdue-invoices":
		jobRunner.MarkOverdueInvoices()
	case "send-invoice-reminders":
		jobRunner.SendInvoiceReminders()
	case "promote-ready-batches":
		jobRunner.PromoteReadyBatches()
	case "cleanup-staged-uploads":
		jobRunner.CleanupStagedUploads()
	case "all-nightly":
		jobRunner.RunAllNightlyJobs()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Println("Available jobs:")
		for _, n := range jobNames {
			fmt.Printf("  - %s\n", n)
		}
		os.Exit(1)
	}
}
