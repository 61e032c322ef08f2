package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpapi "gamerental-backend/internal/api/http"
	"gamerental-backend/internal/config"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/repository"
	fsrepo "gamerental-backend/internal/repository/firestore"
	"gamerental-backend/internal/repository/memory"
	"gamerental-backend/internal/security"
	"gamerental-backend/internal/service"
)

func main() {
	// Load .env if present; real env vars still win
	_ = godotenv.Load()

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
	logger.Info("Starting Game Rental Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Store configuration", "type", cfg.Store.Type, "project", cfg.Store.ProjectID)

	ctx := context.Background()

	// Initialize Store
	var (
		rentals repository.RentalRepository
		history repository.HistoryRepository
		games   repository.GameRepository
		users   repository.UserRepository
		reports repository.ReportRepository

		verifier security.IDTokenVerifier
		accounts security.AccountCreator
	)

	switch cfg.Store.Type {
	case "firestore":
		app, err := fsrepo.NewApp(ctx, cfg.Store.ProjectID, cfg.Store.CredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize firebase app", "error", err)
			log.Fatalf("Failed to initialize firebase app: %v", err)
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			logger.Error("Failed to connect to firestore", "error", err)
			log.Fatalf("Failed to connect to firestore: %v", err)
		}
		defer client.Close()
		logger.Info("Firestore connection established", "project", cfg.Store.ProjectID)

		store := fsrepo.NewStore(client)
		rentals = store.RentalRepository
		history = store.HistoryRepository
		games = store.GameRepository
		users = store.UserRepository
		reports = store.ReportRepository

		if cfg.Auth.Mode == "firebase" {
			fbAuth, err := security.NewFirebaseAuth(ctx, app)
			if err != nil {
				logger.Error("Failed to initialize firebase auth", "error", err)
				log.Fatalf("Failed to initialize firebase auth: %v", err)
			}
			verifier = fbAuth
			accounts = fbAuth
		}
	case "memory":
		if cfg.Auth.Mode == "firebase" {
			log.Fatalf("Auth mode 'firebase' requires the firestore store")
		}
		logger.Warn("Using in-memory store; all state is lost on restart")
		store := memory.NewStore()
		rentals = store.RentalRepository
		history = store.HistoryRepository
		games = store.GameRepository
		users = store.UserRepository
		reports = store.ReportRepository
	default:
		log.Fatalf("Unknown store type: %s", cfg.Store.Type)
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.AccessTokenExpiry)*time.Minute,
		time.Duration(cfg.Auth.SessionTokenExpiry)*time.Minute,
	)

	// Initialize Email Service
	var emailSvc service.EmailService
	if cfg.Email.APIKey != "" {
		emailSvc = service.NewEmailService(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromEmail)
		logger.Info("Email service enabled", "from", cfg.Email.FromEmail)
	} else {
		logger.Info("Email service disabled; no API key configured")
	}

	// Initialize Services
	rentalSvc := service.NewRentalService(
		rentals,
		history,
		games,
		cfg.Billing.RatePerMinute,
		time.Duration(cfg.Rental.TickSeconds)*time.Second,
		time.Duration(cfg.Rental.PauseTimeoutMinutes)*time.Minute,
	)
	reportSvc := service.NewReportService(rentals, history, games)
	adminSvc := service.NewAdminService(games, users, accounts, emailSvc, cfg.QR.BaseURL)
	authSvc := service.NewAuthService(users, tokenManager, verifier)

	// Re-adopt sessions that were active when the previous process died
	if adopted, err := rentalSvc.AdoptActiveSessions(ctx); err != nil {
		logger.Error("Failed to adopt active sessions at startup", "error", err)
	} else if adopted > 0 {
		logger.Info("Resumed active sessions from store", "count", adopted)
	}

	if err := reportSvc.Start(ctx); err != nil {
		logger.Error("Failed to start report service", "error", err)
		log.Fatalf("Failed to start report service: %v", err)
	}

	// Initialize HTTP server
	router := httpapi.NewRouter(cfg, httpapi.Services{
		Rentals:   rentalSvc,
		Reports:   reportSvc,
		Admin:     adminSvc,
		Auth:      authSvc,
		Tokens:    tokenManager,
		Snapshots: reports,
	})

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	reportSvc.Stop()
	rentalSvc.Shutdown()
	logger.Info("Server stopped. Goodbye!")
}
