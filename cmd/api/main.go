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

	"github.com/andeen171/onfly-api/internal/config"
	"github.com/andeen171/onfly-api/internal/db"
	"github.com/andeen171/onfly-api/internal/logging"
	"github.com/andeen171/onfly-api/internal/notify"
	"github.com/andeen171/onfly-api/internal/repo"
	"github.com/andeen171/onfly-api/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	logger := logging.Setup(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database FIRST
	database, err := db.Connect(ctx,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBUser,
		cfg.DBPass,
		cfg.DBSSLMode,
		db.Options{MaxOpenConns: cfg.DBMaxOpenConns, MaxIdleConns: cfg.DBMaxIdleConns},
	)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if cfg.DBAutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL()); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	notifier, closer, err := notify.Open(cfg.NotifyDriver, cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return err
	}
	defer closer.Close()
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyTimeout, logger)

	jobs := scheduler.New(logger)
	if err := jobs.AddTokenPrune(cfg.TokenPruneSchedule, repo.NewTokenRepo(database)); err != nil {
		return err
	}
	jobs.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(database, cfg, dispatcher),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "port", cfg.Port, "tls", cfg.TLSEnabled(), "notify_driver", cfg.NotifyDriver)
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		if err := jobs.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduled jobs still running", "error", err)
		}
		if err := dispatcher.Wait(shutdownCtx); err != nil {
			logger.Warn("pending notifications dropped", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}
