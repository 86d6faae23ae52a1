package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"

	"inventarioti/inventory-api/internal/auth"
	"inventarioti/inventory-api/internal/config"
	"inventarioti/inventory-api/internal/httpserver"
	"inventarioti/inventory-api/internal/inventory"
	"inventarioti/inventory-api/internal/migrations"
	"inventarioti/inventory-api/internal/notify"
	"inventarioti/inventory-api/internal/observability"
	"inventarioti/inventory-api/internal/store"
	"inventarioti/inventory-api/internal/validation"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	db     *sql.DB
	server *httpserver.Server
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = observability.NewLogger(cfg.LogLevel, nil)
	}
	metrics := observability.NewMetrics(nil)
	v := validation.New(cfg.Auth.CorporateDomain)

	st, db, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		if db != nil {
			_ = db.Close()
		}
	}

	authService, err := NewAuthService(cfg, st, v, metrics, logger)
	if err != nil {
		closeDB()
		return nil, err
	}

	if db == nil {
		created, err := authService.SeedAdmin(ctx, SeedAccount(cfg.Seed))
		if err != nil {
			return nil, fmt.Errorf("seed admin account: %w", err)
		}
		if created {
			logger.Info("seed admin account created", "email", cfg.Seed.Email)
		}
	}

	inventoryService, err := inventory.NewService(st, st, v, logger)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("create inventory service: %w", err)
	}

	server := httpserver.New(cfg.HTTP, httpserver.Deps{
		Auth:            authService,
		Inventory:       inventoryService,
		Metrics:         metrics,
		Logger:          logger,
		FrontendURL:     cfg.FrontendURL,
		FrontendDistDir: cfg.FrontendDistDir,
	})

	return &App{
		cfg:    cfg,
		log:    logger,
		db:     db,
		server: server,
	}, nil
}

// NewAuthService wires the hasher, token issuer and reset notifier from cfg.
// Without SMTP_HOST reset links are only logged.
func NewAuthService(cfg config.Config, accounts store.AccountStore, v *validation.Validator, metrics *observability.Metrics, logger *slog.Logger) (*auth.Service, error) {
	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("create password hasher: %w", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("create token issuer: %w", err)
	}

	var notifier notify.Notifier
	if cfg.Mail.Host != "" {
		notifier, err = notify.NewSMTPMailer(notify.SMTPConfig(cfg.Mail))
		if err != nil {
			return nil, fmt.Errorf("create smtp mailer: %w", err)
		}
	} else {
		logger.Warn("SMTP_HOST not set; password reset links will not be emailed")
		notifier = notify.NewLogNotifier(logger)
	}

	svc, err := auth.NewService(accounts, auth.ServiceConfig{
		Hasher:      hasher,
		Tokens:      tokens,
		Notifier:    notifier,
		Validator:   v,
		ResetTTL:    cfg.Auth.ResetTokenTTL,
		FrontendURL: cfg.FrontendURL,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}
	return svc, nil
}

func SeedAccount(seed config.SeedConfig) auth.SeedAccount {
	return auth.SeedAccount{Email: seed.Email, Password: seed.Password, Name: seed.Name}
}

// openStore returns the Postgres store when a real DATABASE_URL is set and
// the in-memory store otherwise. db is nil in memory mode.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (store.Store, *sql.DB, error) {
	if !cfg.UsesManagedDatabase() {
		logger.Warn("DATABASE_URL not configured; using in-memory store", "state_file", cfg.MemoryStateFile)
		if cfg.MemoryStateFile == "" {
			return store.NewMemory(), nil, nil
		}
		mem, err := store.NewMemoryWithFile(cfg.MemoryStateFile)
		if err != nil {
			return nil, nil, fmt.Errorf("create memory store: %w", err)
		}
		return mem, nil, nil
	}

	db, err := OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Apply(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	pg, err := store.NewPostgres(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create postgres store: %w", err)
	}
	return pg, db, nil
}

// OpenPostgres opens and pings the configured database.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	errCh := make(chan error, 1)

	go func() {
		a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}
