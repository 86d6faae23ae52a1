package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"inventarioti/inventory-api/internal/inventory"
)

func (h *handler) registerInventoryRoutes(api *mux.Router) {
	api.Handle("/activos", h.authenticated(h.withInventory(h.listAssets))).Methods(http.MethodGet)
	api.Handle("/activos", h.adminOnly(h.withInventory(h.createAsset))).Methods(http.MethodPost)
	api.Handle("/activos/{serie}", h.adminOnly(h.withInventory(h.updateAsset))).Methods(http.MethodPut)
	api.Handle("/activos/{serie}", h.adminOnly(h.withInventory(h.deleteAsset))).Methods(http.MethodDelete)

	api.Handle("/colaboradores", h.authenticated(h.withInventory(h.listCollaborators))).Methods(http.MethodGet)
	api.Handle("/colaboradores", h.adminOnly(h.withInventory(h.createCollaborator))).Methods(http.MethodPost)
	api.Handle("/colaboradores/{rut}", h.adminOnly(h.withInventory(h.updateCollaborator))).Methods(http.MethodPut)
}

func (h *handler) withInventory(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.inventory == nil {
			writeError(w, http.StatusServiceUnavailable, msgServiceUnavailable)
			return
		}
		next(w, r)
	}
}

func (h *handler) listAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.inventory.ListAssets(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, assetMessages)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *handler) createAsset(w http.ResponseWriter, r *http.Request) {
	var in inventory.AssetInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err, assetMessages)
		return
	}
	created, err := h.inventory.CreateAsset(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, assetMessages)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Activo creado exitosamente", "data": created})
}

func (h *handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	var in inventory.AssetPatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err, assetMessages)
		return
	}
	updated, err := h.inventory.UpdateAsset(r.Context(), mux.Vars(r)["serie"], in)
	if err != nil {
		h.writeServiceError(w, r, err, assetMessages)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Activo actualizado exitosamente", "data": updated})
}

func (h *handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.DeleteAsset(r.Context(), mux.Vars(r)["serie"]); err != nil {
		h.writeServiceError(w, r, err, assetMessages)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Activo eliminado exitosamente"})
}

func (h *handler) listCollaborators(w http.ResponseWriter, r *http.Request) {
	collaborators, err := h.inventory.ListCollaborators(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, collaboratorMessages)
		return
	}
	writeJSON(w, http.StatusOK, collaborators)
}

func (h *handler) createCollaborator(w http.ResponseWriter, r *http.Request) {
	var in inventory.CollaboratorInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err, collaboratorMessages)
		return
	}
	created, err := h.inventory.CreateCollaborator(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, collaboratorMessages)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Colaborador creado exitosamente", "data": created})
}

func (h *handler) updateCollaborator(w http.ResponseWriter, r *http.Request) {
	var in inventory.CollaboratorPatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err, collaboratorMessages)
		return
	}
	updated, err := h.inventory.UpdateCollaborator(r.Context(), mux.Vars(r)["rut"], in)
	if err != nil {
		h.writeServiceError(w, r, err, collaboratorMessages)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Colaborador actualizado exitosamente", "data": updated})
}
