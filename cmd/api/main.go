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

	"portfolio/internal/config"
	"portfolio/internal/database"
	"portfolio/internal/logging"
	"portfolio/internal/metrics"
	"portfolio/internal/repository"
	"portfolio/internal/services"
	"portfolio/internal/telemetry"
	"portfolio/internal/web"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	statsInterval   = 15 * time.Second
)

// store bundles the selected record store with its health and teardown hooks.
type store struct {
	repo  repository.ContactRepository
	ping  web.PingFunc
	stats func()
	close func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.App, cfg.Logging)
	log.Info("starting", "debug", cfg.App.Debug, "host", cfg.App.Host, "port", cfg.App.Port, "db_backend", cfg.Database.Backend)
	if cfg.Session.Secret == config.DefaultSessionSecret && !cfg.App.Debug {
		log.Warn("SESSION_SECRET is the development default; set a unique value in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, cfg.App, cfg.Telemetry)
	if err != nil {
		logging.Fatal(log, "failed to initialize telemetry", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "error", err)
		}
	}()

	st, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		logging.Fatal(log, "failed to initialize database", "error", err)
	}
	defer st.close()
	go reportDBStats(ctx, st.stats)

	emailSvc := services.NewEmailService(cfg.Email, log)
	if !emailSvc.Available() {
		log.Warn("email transport not configured; submissions will be saved without notification")
	}
	contactSvc := services.NewContactService(st.repo, emailSvc, log)

	flash := web.NewFlashStore(cfg.Session.Secret, cfg.Session.CookieSecure)
	handler, err := web.NewHandler(contactSvc, flash, st.ping, web.SiteInfo{
		ServiceName: cfg.App.Name,
		OwnerName:   cfg.Email.OwnerName,
		SiteURL:     cfg.Email.SiteURL,
	}, log)
	if err != nil {
		logging.Fatal(log, "failed to build handlers", "error", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      web.NewRouter(handler, cfg.App.Debug, log),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		logging.Fatal(log, "server failed", "error", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			_ = httpServer.Close()
		}
	}
	log.Info("server shutdown complete")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*store, error) {
	if cfg.Backend == config.BackendPgx {
		pool, err := database.OpenPool(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		repo := repository.NewPgContactRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("record store ready", "backend", cfg.Backend)
		return &store{
			repo:  repo,
			ping:  pool.Ping,
			stats: func() {},
			close: pool.Close,
		}, nil
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	return &store{
		repo: repository.NewGormContactRepository(db),
		ping: func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
		stats: func() {
			if stats, err := database.GetStats(db); err == nil {
				metrics.UpdateDBConnections(stats)
			}
		},
		close: func() {
			if err := database.Close(db); err != nil {
				log.Error("error closing database", "error", err)
			}
		},
	}, nil
}

func reportDBStats(ctx context.Context, report func()) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		report()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
