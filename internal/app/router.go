package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/skillatlas/skillatlas/internal/assets"
	audithttp "github.com/skillatlas/skillatlas/internal/audit/http"
	"github.com/skillatlas/skillatlas/internal/auth"
	"github.com/skillatlas/skillatlas/internal/observability"
	"github.com/skillatlas/skillatlas/internal/portfolio"
	"github.com/skillatlas/skillatlas/internal/rbac"
	"github.com/skillatlas/skillatlas/internal/sfia"
	"github.com/skillatlas/skillatlas/internal/shared"
	"github.com/skillatlas/skillatlas/internal/tpqi"
	"github.com/skillatlas/skillatlas/internal/users"
	"github.com/skillatlas/skillatlas/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler      *auth.Handler
	RBACHandler      *rbac.Handler
	UsersHandler     *users.Handler
	AssetsHandler    *assets.Handler
	AuditHandler     *audithttp.Handler
	SfiaHandler      *sfia.Handler
	TpqiHandler      *tpqi.Handler
	PortfolioHandler *portfolio.Handler
	JobsHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with SkillAtlas defaults. Everything
// except health and metrics lives under /api/v1; the React admin UI is the
// only intended consumer.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.RBACHandler != nil {
			params.RBACHandler.MountRoutes(r)
		}
		if params.UsersHandler != nil {
			r.Route("/accounts", params.UsersHandler.MountRoutes)
		}
		if params.AssetsHandler != nil {
			r.Route("/assets", params.AssetsHandler.MountRoutes)
		}
		if params.SfiaHandler != nil {
			r.Route("/sfia", params.SfiaHandler.MountRoutes)
		}
		if params.TpqiHandler != nil {
			r.Route("/tpqi", params.TpqiHandler.MountRoutes)
		}
		if params.PortfolioHandler != nil {
			r.Route("/portfolios", params.PortfolioHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
