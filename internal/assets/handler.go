package assets

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/skillatlas/skillatlas/internal/platform/httpx"
	"github.com/skillatlas/skillatlas/internal/rbac"
	"github.com/skillatlas/skillatlas/internal/shared"
)

// Handler manages asset registry endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: mw}
}

// MountRoutes registers asset routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceAsset, rbac.ActionRead))
		r.Get("/", h.listAssets)
		r.Get("/{resource}/instances", h.listInstances)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceAssetInstance, rbac.ActionCreate))
		r.Post("/{resource}/instances", h.createInstance)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceAssetInstance, rbac.ActionDelete))
		r.Delete("/instances/{id}", h.deleteInstance)
	})
}

type createInstanceRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type assetResponse struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type instanceResponse struct {
	ID        string    `json:"id"`
	AssetType string    `json:"asset_type"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAssets(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]assetResponse, 0, len(list))
	for _, a := range list {
		out = append(out, assetResponse{Type: a.Type, Description: a.Description, CreatedAt: a.CreatedAt})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listInstances(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListInstances(r.Context(), chi.URLParam(r, "resource"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]instanceResponse, 0, len(list))
	for _, inst := range list {
		out = append(out, toInstanceResponse(inst))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createInstance(w http.ResponseWriter, r *http.Request) {
	var req createInstanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inst, err := h.service.CreateInstance(r.Context(), chi.URLParam(r, "resource"), req.Name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toInstanceResponse(inst))
}

func (h *Handler) deleteInstance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.DeleteInstance(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("assets api", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toInstanceResponse(inst AssetInstance) instanceResponse {
	return instanceResponse{
		ID:        inst.ID.String(),
		AssetType: inst.AssetType,
		Name:      inst.Name,
		CreatedAt: inst.CreatedAt,
	}
}
