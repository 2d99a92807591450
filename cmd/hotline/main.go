package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/friendhotline/hotline/internal/api"
	"github.com/friendhotline/hotline/internal/api/middleware"
	"github.com/friendhotline/hotline/internal/config"
	"github.com/friendhotline/hotline/internal/database"
	"github.com/friendhotline/hotline/internal/telephony"
	"github.com/friendhotline/hotline/internal/vonage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	slog.Info("starting hotline",
		"http_port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"public_host", cfg.PublicHost,
	)

	// Open database and run migrations.
	db, err := database.Open(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Provider credentials. A missing key file is fatal because no call
	// can be placed without application JWTs.
	var privateKey *rsa.PrivateKey
	if cfg.VonagePrivateKeyFile != "" {
		privateKey, err = vonage.LoadPrivateKey(cfg.VonagePrivateKeyFile)
		if err != nil {
			slog.Error("failed to load vonage private key", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no vonage private key configured, outbound calls will fail")
	}

	gateway := vonage.NewClient(vonage.Config{
		APIKey:        cfg.VonageAPIKey,
		APISecret:     cfg.VonageAPISecret,
		ApplicationID: cfg.VonageApplicationID,
		PrivateKey:    privateKey,
	}, logger)

	hotlines := database.NewHotlineRepository(db)
	members := database.NewMemberRepository(db)
	blocklist := database.NewBlockListRepository(db)

	voice := telephony.NewVoice(hotlines, members, blocklist, gateway, logger)
	verification := telephony.NewVerification(hotlines, members, gateway, cfg.VirtualNumber, cfg.Domain, logger)

	// Application context for background goroutines.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// Session store for organizer auth.
	sessions := middleware.NewSessionStore()
	middleware.StartCleanupTicker(appCtx, sessions, 15*time.Minute)

	handler := api.NewServer(db, cfg, voice, verification, sessions, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout. In-flight webhooks finish; the
	// provider retries anything that doesn't.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("hotline stopped")
}
