package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"inventarioti/inventory-api/internal/auth"
	"inventarioti/inventory-api/internal/config"
	"inventarioti/inventory-api/internal/inventory"
	"inventarioti/inventory-api/internal/observability"
	"inventarioti/inventory-api/internal/store"
)

const apiVersion = "1.0.0"

type AuthService interface {
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyToken(token string) (auth.Claims, error)
	ListAccounts(ctx context.Context) ([]auth.AccountSummary, error)
	CreateAccount(ctx context.Context, in auth.CreateAccountInput) (auth.AccountSummary, error)
}

type InventoryService interface {
	ListAssets(ctx context.Context) ([]store.Asset, error)
	CreateAsset(ctx context.Context, in inventory.AssetInput) (store.Asset, error)
	UpdateAsset(ctx context.Context, serial string, in inventory.AssetPatchInput) (store.Asset, error)
	DeleteAsset(ctx context.Context, serial string) error
	ListCollaborators(ctx context.Context) ([]store.Collaborator, error)
	CreateCollaborator(ctx context.Context, in inventory.CollaboratorInput) (store.Collaborator, error)
	UpdateCollaborator(ctx context.Context, rut string, in inventory.CollaboratorPatchInput) (store.Collaborator, error)
}

type Deps struct {
	Auth            AuthService
	Inventory       InventoryService
	Metrics         *observability.Metrics
	Logger          *slog.Logger
	FrontendURL     string
	FrontendDistDir string
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewHandler(deps),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

type handler struct {
	auth      AuthService
	inventory InventoryService
	metrics   *observability.Metrics
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// NewHandler builds the routed API wrapped in the request id, CORS, and
// access log middleware.
func NewHandler(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		auth:      deps.Auth,
		inventory: deps.Inventory,
		metrics:   deps.Metrics,
		logger:    logger,
		nowFunc:   time.Now,
	}

	r := mux.NewRouter()
	r.Use(captureRoute)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	h.registerAuthRoutes(api)
	h.registerInventoryRoutes(api)
	h.registerAccountRoutes(api)

	r.NotFoundHandler = frontendHandler(deps.FrontendDistDir)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Método no permitido")
	})

	var out http.Handler = r
	out = h.accessLog(out)
	out = corsMiddleware(deps.FrontendURL, out)
	out = requestIDMiddleware(out)
	return out
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "Backend ejecutándose correctamente ✓",
		"timestamp": h.nowFunc().UTC(),
		"version":   apiVersion,
	})
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
