package sfia

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skillatlas/skillatlas/internal/audit"
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

type skillRequest struct {
	Code        string `json:"code" validate:"required,max=8"`
	Name        string `json:"name" validate:"required,max=200"`
	Category    string `json:"category" validate:"required,max=200"`
	Subcategory string `json:"subcategory" validate:"max=200"`
	LevelMin    int    `json:"levelMin" validate:"min=1,max=7"`
	LevelMax    int    `json:"levelMax" validate:"min=1,max=7"`
	Overview    string `json:"overview" validate:"max=4000"`
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceSfiaSkill, rbac.ActionRead))
		r.Get("/skills", h.handleList)
		r.Get("/skills/{id}", h.handleGet)
	})
	r.With(h.rbac.Require(rbac.ResourceSfiaSkill, rbac.ActionCreate)).Post("/skills", h.handleCreate)
	r.With(h.rbac.Require(rbac.ResourceSfiaSkill, rbac.ActionUpdate)).Put("/skills/{id}", h.handleUpdate)
	r.With(h.rbac.Require(rbac.ResourceSfiaSkill, rbac.ActionDelete)).Delete("/skills/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	skills, err := h.service.ListSkills(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"skills": skills})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	skill, err := h.service.GetSkill(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, skill)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req skillRequest
	if !h.decode(w, r, &req) {
		return
	}
	skill, err := h.service.CreateSkill(r.Context(), h.actor(r), Skill{
		Code:        req.Code,
		Name:        req.Name,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		LevelMin:    req.LevelMin,
		LevelMax:    req.LevelMax,
		Overview:    req.Overview,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, skill)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req skillRequest
	if !h.decode(w, r, &req) {
		return
	}
	skill, err := h.service.UpdateSkill(r.Context(), h.actor(r), Skill{
		ID:          id,
		Name:        req.Name,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		LevelMin:    req.LevelMin,
		LevelMax:    req.LevelMax,
		Overview:    req.Overview,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, skill)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSkill(r.Context(), h.actor(r), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actor(r *http.Request) int64 {
	if id, ok := shared.ActorFromContext(r.Context()); ok {
		return id
	}
	return audit.SystemActorID
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
	case errors.Is(err, shared.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
	default:
		h.logger.Error("sfia request failed", "error", err, "path", r.URL.Path)
		httpx.Problem(w, http.StatusInternalServerError, "Internal error", "unexpected error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
