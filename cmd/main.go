package main

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

	"github.com/aaroha-fest/sargam-portal/config"
	"github.com/aaroha-fest/sargam-portal/db"
	"github.com/aaroha-fest/sargam-portal/handlers"
	"github.com/aaroha-fest/sargam-portal/repositories"
	"github.com/aaroha-fest/sargam-portal/routes"
	"github.com/aaroha-fest/sargam-portal/services"
	"github.com/aaroha-fest/sargam-portal/storage"
	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Int("admin_emails", len(cfg.AdminEmails)))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Payment-proof storage is optional; without it the upload
	// endpoint reports the feature as unavailable.
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, payment proof uploads disabled")
	}

	var emailService *services.EmailService
	if cfg.SMTPConfigured() {
		emailService = services.NewEmailService(cfg)
		logger.Info("email service initialized", slog.String("host", cfg.SMTPHost))
	} else {
		logger.Warn("SMTP not configured, outgoing email disabled")
	}

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	logger.Info("repositories initialized")

	roleResolver := services.NewRoleResolver(cfg.AdminEmails)
	authService := services.NewAuthService(userRepo, registrationRepo, roleResolver, emailService, logger, services.AuthServiceConfig{
		GoogleClientID:    cfg.GoogleClientID,
		GoogleRedirectURL: cfg.GoogleRedirectURL,
		AdminSetupSecret:  cfg.AdminSetupSecret,
	})
	registrationService := services.NewRegistrationService(registrationRepo, uploader)
	accessGate := services.NewAccessGate(registrationRepo)
	logger.Info("services initialized")

	authHandler := handlers.NewAuthHandler(authService, []byte(cfg.JWTSecretKey))
	registrationHandler := handlers.NewRegistrationHandler(registrationService, accessGate)

	router := routes.SetupRoutes(routes.Config{
		AuthHandler:         authHandler,
		RegistrationHandler: registrationHandler,
		RoleResolver:        roleResolver,
		JWTSecret:           []byte(cfg.JWTSecretKey),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
