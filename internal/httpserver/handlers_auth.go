package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"inventarioti/inventory-api/internal/auth"
)

const msgForgotPassword = "Si el email existe, recibirás instrucciones de recuperación"

func (h *handler) registerAuthRoutes(api *mux.Router) {
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/forgot-password", h.forgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/auth/reset-password", h.resetPassword).Methods(http.MethodPost)
	api.Handle("/auth/me", h.authenticated(h.me)).Methods(http.MethodGet)
}

func (h *handler) registerAccountRoutes(api *mux.Router) {
	api.Handle("/usuarios", h.adminOnly(h.listAccounts)).Methods(http.MethodGet)
	api.Handle("/usuarios", h.adminOnly(h.createAccount)).Methods(http.MethodPost)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusServiceUnavailable, msgServiceUnavailable)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err, recordMessages{})
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err, recordMessages{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login exitoso",
		"token":   res.Token,
		"usuario": res.Account,
	})
}

func (h *handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusServiceUnavailable, msgServiceUnavailable)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err, recordMessages{})
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, r, err, recordMessages{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgForgotPassword})
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusServiceUnavailable, msgServiceUnavailable)
		return
	}
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err, recordMessages{})
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeServiceError(w, r, err, recordMessages{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contraseña actualizada exitosamente"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"usuario": auth.AccountView{
			ID:    claims.AccountID,
			Email: claims.Email,
			Name:  claims.Name,
			Role:  claims.Role,
		},
	})
}

func (h *handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.auth.ListAccounts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, accountMessages)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var in auth.CreateAccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err, accountMessages)
		return
	}

	created, err := h.auth.CreateAccount(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, accountMessages)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Usuario creado exitosamente",
		"data":    created.AccountView,
	})
}
