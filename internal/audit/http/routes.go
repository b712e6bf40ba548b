package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/skillatlas/skillatlas/internal/rbac"
	"github.com/skillatlas/skillatlas/internal/shared"
)

const exportRateLimit = 10
const exportRateWindow = time.Minute

// MountRoutes registers the audit timeline and CSV export endpoints,
// guarded by (auditLog, read). Export is rate limited per user.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceAuditLog, rbac.ActionRead))
		r.Get("/audit", h.handleTimeline)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/audit/export.csv", h.handleExport)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if id, ok := shared.ActorFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(id, 10), nil
	}
	return httprate.KeyByIP(r)
}
