// Command seedadmin waits for Postgres, applies the schema migrations and
// creates the seed admin account when it does not exist yet.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"inventarioti/inventory-api/internal/app"
	"inventarioti/inventory-api/internal/config"
	"inventarioti/inventory-api/internal/migrations"
	"inventarioti/inventory-api/internal/observability"
	"inventarioti/inventory-api/internal/store"
	"inventarioti/inventory-api/internal/validation"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	if !cfg.Database.UsesManagedDatabase() {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(2)
	}

	timeout := 60 * time.Second
	if raw := os.Getenv("WAIT_FOR_POSTGRES_TIMEOUT_SEC"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			fmt.Fprintf(os.Stderr, "invalid WAIT_FOR_POSTGRES_TIMEOUT_SEC: %q\n", raw)
			os.Exit(2)
		}
		timeout = time.Duration(secs) * time.Second
	}

	logger := observability.NewLogger(cfg.LogLevel, nil)
	if err := run(context.Background(), cfg, timeout, logger); err != nil {
		logger.Error("seed admin failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, timeout time.Duration, logger *slog.Logger) error {
	db, err := waitForPostgres(ctx, cfg.Database, timeout)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("postgres ready")

	if err := migrations.Apply(ctx, db, logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	pg, err := store.NewPostgres(db)
	if err != nil {
		return err
	}
	svc, err := app.NewAuthService(cfg, pg, validation.New(cfg.Auth.CorporateDomain), nil, logger)
	if err != nil {
		return err
	}
	created, err := svc.SeedAdmin(ctx, app.SeedAccount(cfg.Seed))
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		logger.Info("seed admin account created", "email", cfg.Seed.Email)
	} else {
		logger.Info("seed admin account already exists", "email", cfg.Seed.Email)
	}
	return nil
}

func waitForPostgres(ctx context.Context, cfg config.DatabaseConfig, timeout time.Duration) (*sql.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		db, err := app.OpenPostgres(pingCtx, cfg)
		cancel()
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("postgres not ready within %s: %w", timeout, err)
		}
		time.Sleep(2 * time.Second)
	}
}
