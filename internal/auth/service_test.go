package auth

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"inventarioti/inventory-api/internal/notify"
	"inventarioti/inventory-api/internal/store"
	"inventarioti/inventory-api/internal/validation"
)

const testFrontendURL = "http://localhost:5173"

type fakeNotifier struct {
	notices []notify.ResetNotice
	err     error
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, n notify.ResetNotice) error {
	f.notices = append(f.notices, n)
	return f.err
}

func (f *fakeNotifier) lastToken(t *testing.T) string {
	t.Helper()
	if len(f.notices) == 0 {
		t.Fatalf("expected a reset notice")
	}
	link := f.notices[len(f.notices)-1].Link
	return strings.TrimPrefix(link, testFrontendURL+"/reset-password?token=")
}

// countingStore records how many times the account store was reached.
type countingStore struct {
	store.AccountStore
	calls atomic.Int32
}

func (c *countingStore) GetAccountByEmail(ctx context.Context, email string) (store.Account, error) {
	c.calls.Add(1)
	return c.AccountStore.GetAccountByEmail(ctx, email)
}

func (c *countingStore) ConsumeResetToken(ctx context.Context, token string, now time.Time, newHash string) (store.Account, error) {
	c.calls.Add(1)
	return c.AccountStore.ConsumeResetToken(ctx, token, now, newHash)
}

func newTestService(t *testing.T, accounts store.AccountStore) (*Service, *fakeNotifier) {
	t.Helper()
	hasher, err := NewHasher(4)
	if err != nil {
		t.Fatalf("NewHasher() error: %v", err)
	}
	tokens, err := NewTokenIssuer("test-secret", 8*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error: %v", err)
	}
	n := &fakeNotifier{}
	svc, err := NewService(accounts, ServiceConfig{
		Hasher:      hasher,
		Tokens:      tokens,
		Notifier:    n,
		Validator:   validation.New("@dominospizza.cl"),
		FrontendURL: testFrontendURL,
	})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	return svc, n
}

func seedAccount(t *testing.T, svc *Service, s store.AccountStore, email, password, role string, active bool) store.Account {
	t.Helper()
	digest, err := svc.hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	a, err := s.CreateAccount(context.Background(), store.Account{
		ID:           "id-" + email,
		Email:        email,
		Name:         "Test " + role,
		PasswordHash: digest,
		Role:         role,
		Active:       active,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}
	return a
}

func TestLoginIssuesTokenWithRole(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)
	if _, err := svc.SeedAdmin(context.Background(), SeedAccount{Email: "admin@dominospizza.cl", Password: "AdminDominos2026", Name: "Administrador TI"}); err != nil {
		t.Fatalf("SeedAdmin() error: %v", err)
	}

	res, err := svc.Login(context.Background(), "Admin@DominosPizza.cl ", "AdminDominos2026")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if res.Account.Email != "admin@dominospizza.cl" || res.Account.Role != store.RoleAdmin {
		t.Fatalf("unexpected account view: %+v", res.Account)
	}

	claims, err := svc.VerifyToken(res.Token)
	if err != nil {
		t.Fatalf("VerifyToken() error: %v", err)
	}
	if claims.Role != store.RoleAdmin || claims.Email != "admin@dominospizza.cl" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsForeignDomainWithoutStoreAccess(t *testing.T) {
	cs := &countingStore{AccountStore: store.NewMemory()}
	svc, _ := newTestService(t, cs)

	for _, email := range []string{"someone@gmail.com", "not-an-email", ""} {
		_, err := svc.Login(context.Background(), email, "whatever1")
		if !errors.Is(err, validation.ErrInvalid) {
			t.Fatalf("%q: expected validation error, got %v", email, err)
		}
	}
	if got := cs.calls.Load(); got != 0 {
		t.Fatalf("expected zero store calls, got %d", got)
	}
}

func TestLoginUnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)
	seedAccount(t, svc, mem, "ana@dominospizza.cl", "secret1", store.RoleViewer, true)

	_, wrongPass := svc.Login(context.Background(), "ana@dominospizza.cl", "secret2")
	_, unknown := svc.Login(context.Background(), "nadie@dominospizza.cl", "secret1")

	if !errors.Is(wrongPass, ErrInvalidCredentials) || !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", wrongPass, unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Fatalf("expected identical messages, got %q and %q", wrongPass, unknown)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(t, mem)
	seedAccount(t, svc, mem, "baja@dominospizza.cl", "secret1", store.RoleViewer, false)

	_, err := svc.Login(context.Background(), "baja@dominospizza.cl", "secret1")
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc, n := newTestService(t, store.NewMemory())

	if err := svc.ForgotPassword(context.Background(), "nadie@dominospizza.cl"); err != nil {
		t.Fatalf("ForgotPassword() error: %v", err)
	}
	if len(n.notices) != 0 {
		t.Fatalf("expected no notice, got %d", len(n.notices))
	}
}

func TestForgotPasswordRequiresEmail(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemory())

	err := svc.ForgotPassword(context.Background(), "  ")
	if !errors.Is(err, validation.ErrInvalid) || err.Error() != "Email requerido" {
		t.Fatalf("expected Email requerido, got %v", err)
	}
}

func TestResetTokenSingleUse(t *testing.T) {
	mem := store.NewMemory()
	svc, n := newTestService(t, mem)
	seedAccount(t, svc, mem, "ana@dominospizza.cl", "secret1", store.RoleViewer, true)
	ctx := context.Background()

	if err := svc.ForgotPassword(ctx, "ana@dominospizza.cl"); err != nil {
		t.Fatalf("ForgotPassword() error: %v", err)
	}
	token := n.lastToken(t)
	if len(token) != 64 {
		t.Fatalf("unexpected token %q", token)
	}

	if err := svc.ResetPassword(ctx, token, "nuevo123"); err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}
	if err := svc.ResetPassword(ctx, token, "otro1234"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken on reuse, got %v", err)
	}

	if _, err := svc.Login(ctx, "ana@dominospizza.cl", "nuevo123"); err != nil {
		t.Fatalf("expected login with new password, got %v", err)
	}
	if _, err := svc.Login(ctx, "ana@dominospizza.cl", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
}

func TestResetTokenExpired(t *testing.T) {
	mem := store.NewMemory()
	svc, n := newTestService(t, mem)
	seedAccount(t, svc, mem, "ana@dominospizza.cl", "secret1", store.RoleViewer, true)
	ctx := context.Background()

	issuedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.nowFunc = func() time.Time { return issuedAt }
	if err := svc.ForgotPassword(ctx, "ana@dominospizza.cl"); err != nil {
		t.Fatalf("ForgotPassword() error: %v", err)
	}
	token := n.lastToken(t)
	if !n.notices[0].ExpiresAt.Equal(issuedAt.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", n.notices[0].ExpiresAt)
	}

	svc.nowFunc = func() time.Time { return issuedAt.Add(time.Hour) }
	if err := svc.ResetPassword(ctx, token, "nuevo123"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
	if _, err := svc.Login(ctx, "ana@dominospizza.cl", "secret1"); err != nil {
		t.Fatalf("expected old password to still work, got %v", err)
	}
}

func TestSecondForgotPasswordInvalidatesFirst(t *testing.T) {
	mem := store.NewMemory()
	svc, n := newTestService(t, mem)
	seedAccount(t, svc, mem, "ana@dominospizza.cl", "secret1", store.RoleViewer, true)
	ctx := context.Background()

	_ = svc.ForgotPassword(ctx, "ana@dominospizza.cl")
	first := n.lastToken(t)
	_ = svc.ForgotPassword(ctx, "ana@dominospizza.cl")
	second := n.lastToken(t)
	if first == second {
		t.Fatalf("expected a fresh token")
	}

	if err := svc.ResetPassword(ctx, first, "nuevo123"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected first token rejected, got %v", err)
	}
	if err := svc.ResetPassword(ctx, second, "nuevo123"); err != nil {
		t.Fatalf("expected second token accepted, got %v", err)
	}
}

func TestResetPasswordValidatesBeforeStore(t *testing.T) {
	cs := &countingStore{AccountStore: store.NewMemory()}
	svc, _ := newTestService(t, cs)

	err := svc.ResetPassword(context.Background(), "", "nuevo123")
	if !errors.Is(err, validation.ErrInvalid) || err.Error() != "Token requerido" {
		t.Fatalf("expected Token requerido, got %v", err)
	}
	err = svc.ResetPassword(context.Background(), "abc", "123")
	if !errors.Is(err, validation.ErrInvalid) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}
	if got := cs.calls.Load(); got != 0 {
		t.Fatalf("expected zero store calls, got %d", got)
	}
}

func TestForgotPasswordDeliveryFailureKeepsToken(t *testing.T) {
	mem := store.NewMemory()
	svc, n := newTestService(t, mem)
	seedAccount(t, svc, mem, "ana@dominospizza.cl", "secret1", store.RoleViewer, true)
	n.err = errors.New("smtp down")

	err := svc.ForgotPassword(context.Background(), "ana@dominospizza.cl")
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected delivery error, got %v", err)
	}

	a, _ := mem.GetAccountByEmail(context.Background(), "ana@dominospizza.cl")
	if a.ResetToken == "" {
		t.Fatalf("expected token to remain stored after delivery failure")
	}
}
