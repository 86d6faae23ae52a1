package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventarioti/inventory-api/internal/auth"
	"inventarioti/inventory-api/internal/inventory"
	"inventarioti/inventory-api/internal/notify"
	"inventarioti/inventory-api/internal/observability"
	"inventarioti/inventory-api/internal/store"
	"inventarioti/inventory-api/internal/validation"
)

type liveStack struct {
	handler http.Handler
	store   *store.Memory
	metrics *observability.Metrics
}

// newLiveStack wires the real services over a memory store seeded with the
// default admin.
func newLiveStack(t *testing.T) liveStack {
	t.Helper()
	mem := store.NewMemory()
	v := validation.New("@dominospizza.cl")
	metrics := observability.NewMetrics(nil)

	hasher, err := auth.NewHasher(4)
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer("scenario-secret", 8*time.Hour)
	require.NoError(t, err)
	authSvc, err := auth.NewService(mem, auth.ServiceConfig{
		Hasher:      hasher,
		Tokens:      tokens,
		Notifier:    notify.NewLogNotifier(quietLogger()),
		Validator:   v,
		FrontendURL: "http://localhost:5173",
		Metrics:     metrics,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	_, err = authSvc.SeedAdmin(context.Background(), auth.SeedAccount{
		Email:    "admin@dominospizza.cl",
		Password: "AdminDominos2026",
		Name:     "Administrador TI",
	})
	require.NoError(t, err)

	invSvc, err := inventory.NewService(mem, mem, v, quietLogger())
	require.NoError(t, err)

	return liveStack{
		handler: NewHandler(Deps{Auth: authSvc, Inventory: invSvc, Metrics: metrics, Logger: quietLogger()}),
		store:   mem,
		metrics: metrics,
	}
}

func loginToken(t *testing.T, h http.Handler, email, password string) string {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var payload struct {
		Message string           `json:"message"`
		Token   string           `json:"token"`
		Usuario auth.AccountView `json:"usuario"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	assert.Equal(t, "Login exitoso", payload.Message)
	return payload.Token
}

func TestSeededAdminLogin(t *testing.T) {
	stack := newLiveStack(t)

	token := loginToken(t, stack.handler, "admin@dominospizza.cl", "AdminDominos2026")

	var claims auth.Claims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdmin, claims.Role)
	assert.Equal(t, "admin@dominospizza.cl", claims.Email)

	assert.Equal(t, 1.0, testutil.ToFloat64(stack.metrics.AuthEventsTotal.WithLabelValues(observability.EventLoginSuccess)))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	stack := newLiveStack(t)

	wrong := doRequest(t, stack.handler, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@dominospizza.cl", "password": "incorrecta"})
	unknown := doRequest(t, stack.handler, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nadie@dominospizza.cl", "password": "incorrecta"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestDuplicateSerialRejected(t *testing.T) {
	stack := newLiveStack(t)
	token := loginToken(t, stack.handler, "admin@dominospizza.cl", "AdminDominos2026")

	asset := map[string]string{
		"serie":            "abc123",
		"marca":            "Lenovo",
		"modelo":           "ThinkPad T14",
		"estado":           "Disponible",
		"rut_responsable":  "11111111-1",
		"ubicacion":        "Bodega Central",
		"tipo_dispositivo": "Laptop",
	}
	rec := doRequest(t, stack.handler, http.MethodPost, "/api/activos", token, asset)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	asset["serie"] = "ABC123"
	asset["marca"] = "Dell"
	rec = doRequest(t, stack.handler, http.MethodPost, "/api/activos", token, asset)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Activo con esta serie ya existe"}`, rec.Body.String())

	stored, err := stack.store.GetAsset(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "Lenovo", stored.Brand)
}

func TestViewerCannotCreateAccounts(t *testing.T) {
	stack := newLiveStack(t)
	admin := loginToken(t, stack.handler, "admin@dominospizza.cl", "AdminDominos2026")

	rec := doRequest(t, stack.handler, http.MethodPost, "/api/usuarios", admin, map[string]string{
		"email":    "ana@dominospizza.cl",
		"password": "secret1",
		"nombre":   "Ana",
		"rol":      "viewer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, stack.handler, http.MethodPost, "/api/usuarios", admin, map[string]string{
		"email":    "ana@dominospizza.cl",
		"password": "secret1",
		"nombre":   "Ana",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email ya registrado"}`, rec.Body.String())

	viewer := loginToken(t, stack.handler, "ana@dominospizza.cl", "secret1")
	rec = doRequest(t, stack.handler, http.MethodGet, "/api/usuarios", viewer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, stack.handler, http.MethodGet, "/api/usuarios", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestPasswordResetOverHTTP(t *testing.T) {
	stack := newLiveStack(t)
	ctx := context.Background()

	rec := doRequest(t, stack.handler, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "admin@dominospizza.cl"})
	require.Equal(t, http.StatusOK, rec.Code)

	acc, err := stack.store.GetAccountByEmail(ctx, "admin@dominospizza.cl")
	require.NoError(t, err)
	require.NotEmpty(t, acc.ResetToken)

	body := map[string]string{"token": acc.ResetToken, "newPassword": "NuevaClave2026"}
	rec = doRequest(t, stack.handler, http.MethodPost, "/api/auth/reset-password", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, stack.handler, http.MethodPost, "/api/auth/reset-password", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Token inválido o expirado"}`, rec.Body.String())

	loginToken(t, stack.handler, "admin@dominospizza.cl", "NuevaClave2026")
}

func TestMetricsRecordRouteTemplate(t *testing.T) {
	stack := newLiveStack(t)
	token := loginToken(t, stack.handler, "admin@dominospizza.cl", "AdminDominos2026")

	doRequest(t, stack.handler, http.MethodDelete, "/api/activos/XYZ", token, nil)

	got := testutil.ToFloat64(stack.metrics.HTTPRequestsTotal.WithLabelValues(http.MethodDelete, "/api/activos/{serie}", "200"))
	assert.Equal(t, 1.0, got)

	rec := doRequest(t, stack.handler, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "inventory_http_requests_total")
}
