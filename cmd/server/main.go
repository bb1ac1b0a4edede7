// Command ws-server serves the wordshelf dashboard REST API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/wordshelf/internal/config"
	pkgcrypto "github.com/and161185/wordshelf/internal/crypto"
	"github.com/and161185/wordshelf/internal/limiter"
	"github.com/and161185/wordshelf/internal/migrate"
	"github.com/and161185/wordshelf/internal/repository/postgres"
	"github.com/and161185/wordshelf/internal/server/httpapi"
	"github.com/and161185/wordshelf/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and serves HTTP until SIGINT/SIGTERM.
func main() {
	_ = config.LoadDotEnv()
	cfg := config.RegisterServer(flag.CommandLine)
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DSN, 0)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	itemRepo := postgres.NewItemRepo(db)
	lim := limiter.NewPG(db.Pool, limiter.DefaultPolicy)

	authSvc := service.NewAuthService(
		userRepo, pkgcrypto.NewHasher(pkgcrypto.DefaultParams), []byte(cfg.JWTKey),
		cfg.AccessTTL, cfg.RefreshTTL, lim,
	)
	libSvc := service.NewLibraryService(itemRepo, userRepo, cfg.MaxPage)

	api := httpapi.New(authSvc, libSvc, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(httpapi.Options{Metrics: cfg.Metrics, AuthRPS: 1, AuthBurst: 10}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
