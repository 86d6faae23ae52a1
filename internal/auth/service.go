package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inventarioti/inventory-api/internal/notify"
	"inventarioti/inventory-api/internal/observability"
	"inventarioti/inventory-api/internal/store"
	"inventarioti/inventory-api/internal/validation"
)

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountInactive       = errors.New("account inactive")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
)

const DefaultResetTTL = time.Hour

// AccountView is the public shape of an account returned on login.
type AccountView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"nombre"`
	Role  string `json:"rol"`
}

type LoginResult struct {
	Token   string
	Account AccountView
}

type loginInput struct {
	Email    string `validate:"required,email,corporate" msg:"Email inválido"`
	Password string `validate:"required,min=6" msg:"Contraseña debe tener mínimo 6 caracteres"`
}

type resetInput struct {
	Token       string `validate:"required" msg:"Token requerido"`
	NewPassword string `validate:"required,min=6" msg:"Contraseña debe tener mínimo 6 caracteres"`
}

// Service runs login and the password reset lifecycle, plus the account
// management used by admins.
type Service struct {
	accounts    store.AccountStore
	hasher      *Hasher
	tokens      *TokenIssuer
	notifier    notify.Notifier
	validator   *validation.Validator
	resetTTL    time.Duration
	frontendURL string
	metrics     *observability.Metrics
	logger      *slog.Logger
	nowFunc     func() time.Time
}

type ServiceConfig struct {
	Hasher      *Hasher
	Tokens      *TokenIssuer
	Notifier    notify.Notifier
	Validator   *validation.Validator
	ResetTTL    time.Duration
	FrontendURL string
	Metrics     *observability.Metrics
	Logger      *slog.Logger
}

func NewService(accounts store.AccountStore, cfg ServiceConfig) (*Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if cfg.Hasher == nil || cfg.Tokens == nil {
		return nil, fmt.Errorf("hasher and token issuer are required")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if cfg.ResetTTL == 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.ResetTTL < 0 {
		return nil, fmt.Errorf("reset token TTL must be > 0")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		accounts:    accounts,
		hasher:      cfg.Hasher,
		tokens:      cfg.Tokens,
		notifier:    cfg.Notifier,
		validator:   cfg.Validator,
		resetTTL:    cfg.ResetTTL,
		frontendURL: cfg.FrontendURL,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		nowFunc:     time.Now,
	}, nil
}

// Login checks the credentials and issues a session token. Unknown emails
// and wrong passwords fail with the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if err := s.validator.Struct(loginInput{Email: email, Password: password}); err != nil {
		return LoginResult{}, err
	}

	a, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.AuthEvent(observability.EventLoginFailure)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup account: %w", err)
	}
	if !a.Active {
		s.metrics.AuthEvent(observability.EventLoginFailure)
		return LoginResult{}, ErrAccountInactive
	}
	if !s.hasher.Verify(password, a.PasswordHash) {
		s.metrics.AuthEvent(observability.EventLoginFailure)
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(Claims{AccountID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role})
	if err != nil {
		return LoginResult{}, err
	}
	s.metrics.AuthEvent(observability.EventLoginSuccess)
	s.logger.InfoContext(ctx, "login succeeded", "account_id", a.ID, "rol", a.Role)
	return LoginResult{Token: token, Account: viewOf(a)}, nil
}

// VerifyToken validates a session token and returns its claims.
func (s *Service) VerifyToken(token string) (Claims, error) {
	return s.tokens.Verify(token)
}

// ForgotPassword issues a fresh reset token for a known email and sends the
// link. Unknown emails succeed silently. A token stays stored when delivery
// fails; the delivery error is returned.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return validation.Errorf("email", "Email requerido")
	}

	a, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.DebugContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	token, err := NewResetToken()
	if err != nil {
		return err
	}
	expiresAt := s.nowFunc().Add(s.resetTTL)
	if err := s.accounts.SetResetToken(ctx, a.Email, token, expiresAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("store reset token: %w", err)
	}
	s.metrics.AuthEvent(observability.EventResetIssued)

	notice := notify.ResetNotice{
		Email:     a.Email,
		Name:      a.Name,
		Link:      notify.ResetLink(s.frontendURL, token),
		ExpiresAt: expiresAt,
	}
	if err := s.notifier.SendPasswordReset(ctx, notice); err != nil {
		return fmt.Errorf("deliver reset link: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset issued", "account_id", a.ID)
	return nil
}

// ResetPassword redeems a reset token. The password swap and the token
// clear happen in a single conditional store write, so a token is
// accepted at most once.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if err := s.validator.Struct(resetInput{Token: token, NewPassword: newPassword}); err != nil {
		return err
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	a, err := s.accounts.ConsumeResetToken(ctx, token, s.nowFunc(), digest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.AuthEvent(observability.EventResetRejected)
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}
	s.metrics.AuthEvent(observability.EventResetConsumed)
	s.logger.InfoContext(ctx, "password reset completed", "account_id", a.ID)
	return nil
}

func viewOf(a store.Account) AccountView {
	return AccountView{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
