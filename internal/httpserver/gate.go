package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"inventarioti/inventory-api/internal/auth"
	"inventarioti/inventory-api/internal/store"
)

const (
	msgTokenRequired      = "Token requerido"
	msgTokenInvalid       = "Token inválido o expirado"
	msgAdminRequired      = "Permisos insuficientes. Se requiere rol admin"
	msgServiceUnavailable = "Servicio no disponible"
)

type claimsKey struct{}

func withClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the identity admitted by the gate.
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}

// authenticated admits requests carrying a valid bearer token.
func (h *handler) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.auth == nil {
			writeError(w, http.StatusServiceUnavailable, msgServiceUnavailable)
			return
		}
		token, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, msgTokenRequired)
			return
		}
		claims, err := h.auth.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, msgTokenInvalid)
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// adminOnly is authenticated plus the admin role check.
func (h *handler) adminOnly(next http.HandlerFunc) http.Handler {
	return h.authenticated(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		if claims.Role != store.RoleAdmin {
			writeError(w, http.StatusForbidden, msgAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(authHeader string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
