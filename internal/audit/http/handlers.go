// Package audithttp exposes the audit timeline over HTTP.
package audithttp

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/skillatlas/skillatlas/internal/audit"
	"github.com/skillatlas/skillatlas/internal/platform/httpx"
	"github.com/skillatlas/skillatlas/internal/rbac"
)

// Handler serves audit timeline and export endpoints.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
	rbac    rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *audit.Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

type timelineRowResponse struct {
	At       time.Time      `json:"at"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

type timelineResponse struct {
	Rows   []timelineRowResponse `json:"rows"`
	Page   int                   `json:"page"`
	Size   int                   `json:"page_size"`
	Next   int                   `json:"next_page,omitempty"`
	Prev   int                   `json:"prev_page,omitempty"`
	More   bool                  `json:"has_next"`
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	resp := timelineResponse{
		Rows: make([]timelineRowResponse, 0, len(result.Rows)),
		Page: result.Paging.Page,
		Size: result.Paging.PageSize,
		Next: result.Paging.NextPage,
		Prev: result.Paging.PrevPage,
		More: result.Paging.HasNext,
	}
	for _, row := range result.Rows {
		resp.Rows = append(resp.Rows, timelineRowResponse{
			At:       row.At,
			ActorID:  row.ActorID,
			Action:   row.Action,
			Entity:   row.Entity,
			EntityID: row.EntityID,
			Meta:     row.Meta,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Export(r.Context(), parseFilters(r))
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"occurred_at", "actor_id", "action", "entity", "entity_id"})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.At.Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
		})
	}
	writer.Flush()
}

func parseFilters(r *http.Request) audit.TimelineFilters {
	query := r.URL.Query()
	filters := audit.TimelineFilters{
		Entity: query.Get("entity"),
		Action: query.Get("action"),
	}
	if raw := query.Get("actor_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.ActorID = id
		}
	}
	if raw := query.Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.From = t
		}
	}
	if raw := query.Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.To = t
		}
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		filters.Page = page
	}
	if size, err := strconv.Atoi(query.Get("page_size")); err == nil {
		filters.PageSize = size
	}
	return filters
}
