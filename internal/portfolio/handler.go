package portfolio

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

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		rbac:     mw,
	}
}

type portfolioRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Summary string `json:"summary" validate:"max=4000"`
}

type portfolioResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   int64     `json:"ownerId"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toResponse(p Portfolio) portfolioResponse {
	return portfolioResponse{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Title:     p.Title,
		Summary:   p.Summary,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	// Listing across owners needs the role permission; reading or changing a
	// single portfolio is decided per instance so owners reach their own
	// portfolios through the grants written at creation time.
	r.With(h.rbac.Require(rbac.ResourcePortfolio, rbac.ActionRead)).Get("/", h.handleList)
	r.With(h.rbac.Require(rbac.ResourcePortfolio, rbac.ActionCreate)).Post("/", h.handleCreate)
	r.Get("/mine", h.handleListOwn)
	r.With(h.rbac.RequireInstance(rbac.ResourcePortfolio, rbac.ActionRead, "id")).Get("/{id}", h.handleGet)
	r.With(h.rbac.RequireInstance(rbac.ResourcePortfolio, rbac.ActionUpdate, "id")).Put("/{id}", h.handleUpdate)
	r.With(h.rbac.RequireInstance(rbac.ResourcePortfolio, rbac.ActionDelete, "id")).Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]portfolioResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"portfolios": out})
}

func (h *Handler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	items, err := h.service.ListOwn(r.Context(), actorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]portfolioResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"portfolios": out})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req portfolioRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.Create(r.Context(), actorID, req.Title, req.Summary)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid portfolio id", err.Error())
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid portfolio id", err.Error())
		return
	}
	actorID, _ := shared.ActorFromContext(r.Context())
	var req portfolioRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.Update(r.Context(), actorID, id, req.Title, req.Summary)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid portfolio id", err.Error())
		return
	}
	actorID, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
	default:
		h.logger.Error("portfolio request failed", "error", err, "path", r.URL.Path)
		httpx.Problem(w, http.StatusInternalServerError, "Internal error", "unexpected error")
	}
}
