package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"inventarioti/inventory-api/internal/store"
)

// AccountSummary is the admin listing view. It never carries the hash or
// reset state.
type AccountSummary struct {
	AccountView
	Active    bool      `json:"activo"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateAccountInput struct {
	Email    string `json:"email" validate:"required,email,corporate" msg:"Email inválido"`
	Password string `json:"password" validate:"required,min=6" msg:"Contraseña debe tener mínimo 6 caracteres"`
	Name     string `json:"nombre" validate:"required" msg:"Nombre requerido"`
	Role     string `json:"rol" validate:"omitempty,oneof=admin viewer" msg:"Rol debe ser admin o viewer"`
}

type SeedAccount struct {
	Email    string
	Password string
	Name     string
}

func (s *Service) ListAccounts(ctx context.Context) ([]AccountSummary, error) {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, summaryOf(a))
	}
	return out, nil
}

// CreateAccount registers a new account. Duplicate emails fail with
// store.ErrConflict. Role defaults to viewer.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (AccountSummary, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	if err := s.validator.Struct(in); err != nil {
		return AccountSummary{}, err
	}
	if in.Role == "" {
		in.Role = store.RoleViewer
	}

	if _, err := s.accounts.GetAccountByEmail(ctx, in.Email); err == nil {
		return AccountSummary{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return AccountSummary{}, fmt.Errorf("lookup account: %w", err)
	}

	created, err := s.createAccount(ctx, in.Email, in.Password, in.Name, in.Role)
	if err != nil {
		return AccountSummary{}, err
	}
	s.logger.InfoContext(ctx, "account created", "account_id", created.ID, "rol", created.Role)
	return summaryOf(created), nil
}

// SeedAdmin creates the admin account unless the email is already taken.
// It reports whether an account was created.
func (s *Service) SeedAdmin(ctx context.Context, seed SeedAccount) (bool, error) {
	email := normalizeEmail(seed.Email)
	if email == "" || seed.Password == "" {
		return false, fmt.Errorf("seed email and password are required")
	}
	if _, err := s.accounts.GetAccountByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("lookup seed account: %w", err)
	}

	if _, err := s.createAccount(ctx, email, seed.Password, seed.Name, store.RoleAdmin); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) createAccount(ctx context.Context, email, password, name, role string) (store.Account, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return store.Account{}, err
	}
	created, err := s.accounts.CreateAccount(ctx, store.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: digest,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.Account{}, store.ErrConflict
		}
		return store.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

func summaryOf(a store.Account) AccountSummary {
	return AccountSummary{AccountView: viewOf(a), Active: a.Active, CreatedAt: a.CreatedAt}
}
