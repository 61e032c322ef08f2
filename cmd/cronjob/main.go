package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gamerental-backend/internal/config"
	"gamerental-backend/internal/jobs"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/repository"
	fsrepo "gamerental-backend/internal/repository/firestore"
	"gamerental-backend/internal/repository/memory"
	"gamerental-backend/internal/scheduler"
	"gamerental-backend/internal/service"
)

func main() {
	_ = godotenv.Load()

	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reconcile-sessions', 'snapshot-daily-revenue', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Game Rental Cronjob Runner...", "log_level", cfg.Log.Level)

	ctx := context.Background()

	// Initialize Store
	var (
		rentals repository.RentalRepository
		history repository.HistoryRepository
		games   repository.GameRepository
		reports repository.ReportRepository
	)

	switch cfg.Store.Type {
	case "firestore":
		app, err := fsrepo.NewApp(ctx, cfg.Store.ProjectID, cfg.Store.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize firebase app: %v", err)
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			log.Fatalf("Failed to connect to firestore: %v", err)
		}
		defer client.Close()
		logger.Info("Firestore connection established", "project", cfg.Store.ProjectID)

		store := fsrepo.NewStore(client)
		rentals = store.RentalRepository
		history = store.HistoryRepository
		games = store.GameRepository
		reports = store.ReportRepository
	case "memory":
		logger.Warn("Using in-memory store; all state is lost on exit")
		store := memory.NewStore()
		rentals = store.RentalRepository
		history = store.HistoryRepository
		games = store.GameRepository
		reports = store.ReportRepository
	default:
		log.Fatalf("Unknown store type: %s", cfg.Store.Type)
	}

	// Initialize Services. No rental service here: session ticking lives in
	// the server process only.
	reportSvc := service.NewReportService(rentals, history, games)

	jobServices := &jobs.Services{
		Report: reportSvc,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(rentals, reports, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "reconcile-sessions":
		jobRunner.ReconcileActiveSessions()
	case "snapshot-daily-revenue":
		jobRunner.SnapshotDailyRevenue()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - reconcile-sessions\n")
		fmt.Printf("  - snapshot-daily-revenue\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
