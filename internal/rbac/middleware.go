package rbac

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillatlas/skillatlas/internal/platform/httpx"
	"github.com/skillatlas/skillatlas/internal/shared"
)

// Middleware guards routes with the decision engine. The actor identity
// comes from the session; any role hint a client might claim is ignored and
// permissions are always re-resolved from the policy store.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// Require guards a route with a (resource, action) pair. The pair is typed;
// an unknown name cannot reach this signature.
func (m Middleware) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	mustValid(resource, action)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
				return
			}
			decision := m.Engine.Authorize(r.Context(), actorID, resource, action)
			if !decision.Allowed {
				m.deny(w, r, actorID, resource, action, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireInstance guards a route on an instance-scoped resource, reading the
// instance id from the named chi URL parameter. A malformed id denies.
func (m Middleware) RequireInstance(resource Resource, action Action, urlParam string) func(http.Handler) http.Handler {
	mustValid(resource, action)
	if _, ok := resource.AssetType(); !ok {
		panic(fmt.Sprintf("rbac: resource %q is not instance-scoped", resource))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
				return
			}
			instanceID, err := uuid.Parse(chi.URLParam(r, urlParam))
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed instance id")
				return
			}
			decision := m.Engine.Authorize(r.Context(), actorID, resource, action, WithInstance(instanceID))
			if !decision.Allowed {
				m.deny(w, r, actorID, resource, action, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MustRequire resolves raw resource/action names at route-registration time
// and panics on unknown values. A typo in a route guard is a configuration
// error and must fail at startup, not turn into a silent runtime deny.
func (m Middleware) MustRequire(rawResource, rawAction string) func(http.Handler) http.Handler {
	resource, err := ParseResource(rawResource)
	if err != nil {
		panic(err)
	}
	action, err := ParseAction(rawAction)
	if err != nil {
		panic(err)
	}
	return m.Require(resource, action)
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, actorID int64, resource Resource, action Action, decision Decision) {
	if m.Logger != nil {
		m.Logger.Info("authz deny",
			slog.Int64("actor", actorID),
			slog.String("resource", string(resource)),
			slog.String("action", string(action)),
			slog.String("reason", string(decision.Reason)),
			slog.String("path", r.URL.Path))
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", string(decision.Reason))
}

func mustValid(resource Resource, action Action) {
	if !resource.Valid() {
		panic(fmt.Sprintf("rbac: unknown resource %q", resource))
	}
	if !action.Valid() {
		panic(fmt.Sprintf("rbac: unknown action %q", action))
	}
}
