package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/oauth2/google"

	"familytodo/internal/config"
	"familytodo/internal/handlers"
	"familytodo/internal/repository"
	"familytodo/internal/security"
	"familytodo/internal/service"
	"familytodo/pkg/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx := context.Background()

	// The process cannot serve without its store
	store, err := repository.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize database", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	secret := cfg.JWTSecret
	if secret == "" {
		secret, err = security.GenerateSecret(32)
		if err != nil {
			slog.Error("failed to generate JWT secret", "error", err)
			os.Exit(1)
		}
		slog.Warn("JWT_SECRET not set; using a random secret, tokens will not survive a restart")
	}

	emailService, err := service.NewEmailServiceFromConfig(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize email service", "error", err)
		os.Exit(1)
	}

	// Initialize services
	identities := service.NewDispatcher(
		service.NewPasswordResolver(store),
		service.NewExternalResolver("google", store),
	)
	authService := service.NewAuthService(store, identities, security.NewTokenIssuer(secret, cfg.TokenTTL))
	membershipService := service.NewMembershipService(store)
	familyService := service.NewFamilyService(store, store, emailService)
	todoService := service.NewTodoService(store)
	familyTodoService := service.NewFamilyTodoService(store, store, membershipService)

	googleProvider := handlers.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, google.Endpoint)
	if googleProvider == nil {
		slog.Info("google sign-in disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
	}

	// Initialize handlers
	router := &handlers.Router{
		Auth:       handlers.NewAuthHandler(authService, googleProvider, cfg.OAuthRedirectBaseURL, cfg.FrontendURL),
		Todos:      handlers.NewTodoHandler(todoService),
		Families:   handlers.NewFamilyHandler(familyService, familyTodoService),
		Middleware: handlers.NewMiddleware(authService),
		CORSOrigin: cfg.CORSOrigin,
	}

	handler := router.Handler()
	if cfg.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		slog.Info("server listening", "addr", addr, "h2c", cfg.EnableH2C)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
