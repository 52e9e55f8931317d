package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/database"
	"portfolio/internal/logging"
	"portfolio/internal/repository"
)

// migrate creates the contact_submissions schema for the configured backend
// and exits. The API server runs the same bootstrap on startup.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.App, cfg.Logging).With("component", "migrate")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch cfg.Database.Backend {
	case config.BackendPgx:
		pool, err := database.OpenPool(ctx, cfg.Database.URL)
		if err != nil {
			logging.Fatal(log, "failed to connect", "error", err)
		}
		defer pool.Close()
		if err := repository.NewPgContactRepository(pool).Migrate(ctx); err != nil {
			logging.Fatal(log, "migration failed", "error", err)
		}
	default:
		db, err := database.Open(cfg.Database, log)
		if err != nil {
			logging.Fatal(log, "migration failed", "error", err)
		}
		defer func() { _ = database.Close(db) }()
	}

	log.Info("schema up to date", "backend", cfg.Database.Backend)
}
