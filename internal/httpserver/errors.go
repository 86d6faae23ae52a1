package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventarioti/inventory-api/internal/auth"
	"inventarioti/inventory-api/internal/store"
	"inventarioti/inventory-api/internal/validation"
)

const (
	maxBodyBytes     = 1 << 20
	msgInternalError = "Error interno del servidor"
	msgBadBody       = "Datos inválidos"
)

// recordMessages names the conflict and not-found messages of one record
// kind.
type recordMessages struct {
	conflict string
	notFound string
}

var (
	assetMessages        = recordMessages{conflict: "Activo con esta serie ya existe", notFound: "Activo no encontrado"}
	collaboratorMessages = recordMessages{conflict: "Colaborador con este RUT ya existe", notFound: "Colaborador no encontrado"}
	accountMessages      = recordMessages{conflict: "Email ya registrado", notFound: "Usuario no encontrado"}
)

// writeServiceError maps an error kind to its status and client message.
// Anything unclassified is logged and answered with a generic 500.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msgs recordMessages) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Email o contraseña incorrectos")
	case errors.Is(err, auth.ErrAccountInactive):
		writeError(w, http.StatusUnauthorized, "Usuario inactivo. Contacta a administrador")
	case errors.Is(err, auth.ErrInvalidOrExpiredToken):
		writeError(w, http.StatusBadRequest, msgTokenInvalid)
	case errors.Is(err, store.ErrConflict) && msgs.conflict != "":
		writeError(w, http.StatusBadRequest, msgs.conflict)
	case errors.Is(err, store.ErrNotFound) && msgs.notFound != "":
		writeError(w, http.StatusNotFound, msgs.notFound)
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return validation.Errorf("body", msgBadBody)
	}
	return nil
}
