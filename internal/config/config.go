package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	HTTP            HTTPConfig
	Database        DatabaseConfig
	Auth            AuthConfig
	Mail            MailConfig
	Seed            SeedConfig
	FrontendURL     string
	FrontendDistDir string
	LogLevel        string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	Password        string
	MemoryStateFile string
}

type AuthConfig struct {
	JWTSecret       string
	SessionTTL      time.Duration
	ResetTokenTTL   time.Duration
	BcryptCost      int
	CorporateDomain string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SeedConfig struct {
	Email    string
	Password string
	Name     string
}

func Load() (Config, error) {
	sessionTTL, err := getEnvDuration("JWT_EXPIRES_IN", 8*time.Hour)
	if err != nil {
		return Config{}, err
	}
	resetTTL, err := getEnvDuration("RESET_TOKEN_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            getEnv("HTTP_ADDR", ":"+getEnv("PORT", "8080")),
			ReadTimeout:     time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SEC", 10)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SEC", 15)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("HTTP_SHUTDOWN_TIMEOUT_SEC", 20)) * time.Second,
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Password:        getEnv("DATABASE_PASSWORD", ""),
			MemoryStateFile: getEnv("MEMORY_STATE_FILE", ""),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			SessionTTL:      sessionTTL,
			ResetTokenTTL:   resetTTL,
			BcryptCost:      getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
			CorporateDomain: getEnv("CORPORATE_EMAIL_DOMAIN", "@dominospizza.cl"),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("EMAIL_FROM", "no-reply@dominospizza.cl"),
		},
		Seed: SeedConfig{
			Email:    getEnv("SEED_ADMIN_EMAIL", "admin@dominospizza.cl"),
			Password: getEnv("SEED_ADMIN_PASSWORD", "AdminDominos2026"),
			Name:     getEnv("SEED_ADMIN_NAME", "Administrador TI"),
		},
		FrontendURL:     strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		FrontendDistDir: getEnv("FRONTEND_DIST_DIR", ""),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if cfg.HTTP.Addr == "" || cfg.HTTP.Addr == ":" {
		return Config{}, fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("JWT_EXPIRES_IN must be > 0")
	}
	if cfg.Auth.ResetTokenTTL <= 0 {
		return Config{}, fmt.Errorf("RESET_TOKEN_TTL must be > 0")
	}
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if !strings.HasPrefix(cfg.Auth.CorporateDomain, "@") {
		return Config{}, fmt.Errorf("CORPORATE_EMAIL_DOMAIN must start with @")
	}
	if cfg.Mail.Port <= 0 || cfg.Mail.Port > 65535 {
		return Config{}, fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}
	if cfg.Seed.Email == "" || cfg.Seed.Password == "" {
		return Config{}, fmt.Errorf("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("LOG_LEVEL must be debug, info, warn, or error")
	}

	return cfg, nil
}

// UsesManagedDatabase reports whether real database credentials were
// configured. An empty URL, or a URL or password containing the "..."
// placeholder, selects the in-memory store.
func (c DatabaseConfig) UsesManagedDatabase() bool {
	u := strings.TrimSpace(c.URL)
	return u != "" && !strings.Contains(u, "...") && !strings.Contains(c.Password, "...")
}

// DSN returns the connection URL with Password injected when the URL
// carries a user but no password of its own.
func (c DatabaseConfig) DSN() (string, error) {
	if c.Password == "" {
		return c.URL, nil
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if u.User == nil {
		return "", fmt.Errorf("DATABASE_URL has no user for DATABASE_PASSWORD")
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return c.URL, nil
	}
	u.User = url.UserPassword(u.User.Username(), c.Password)
	return u.String(), nil
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, val)
	}
	return d, nil
}
