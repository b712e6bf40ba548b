package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/skillatlas/skillatlas/internal/shared"
)

func authenticatedRequest(t *testing.T, method, target string, userID int64) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	sess := &shared.Session{}
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestMiddleware(perms PermissionSet) Middleware {
	engine := NewEngine(&stubResolver{perms: perms}, &stubGrants{}, nil, nil)
	return Middleware{Engine: engine}
}

func TestRequireAllows(t *testing.T) {
	mw := newTestMiddleware(NewPermissionSet([]Permission{
		{Resource: ResourceSfiaSkill, Action: ActionRead},
	}))

	handler := mw.Require(ResourceSfiaSkill, ActionRead)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/sfia/skills", 7))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireDenies(t *testing.T) {
	mw := newTestMiddleware(NewPermissionSet(nil))

	handler := mw.Require(ResourceSfiaSkill, ActionDelete)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authenticatedRequest(t, http.MethodDelete, "/sfia/skills/3", 7))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), string(ReasonInsufficientPermission))
}

func TestRequireAnonymous(t *testing.T) {
	mw := newTestMiddleware(NewPermissionSet([]Permission{
		{Resource: ResourceSfiaSkill, Action: ActionRead},
	}))

	handler := mw.Require(ResourceSfiaSkill, ActionRead)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sfia/skills", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireInstanceMalformedID(t *testing.T) {
	mw := newTestMiddleware(NewPermissionSet(nil))

	router := chi.NewRouter()
	router.With(mw.RequireInstance(ResourcePortfolio, ActionRead, "id")).
		Get("/portfolios/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/portfolios/not-a-uuid", 7))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireInstancePanicsOnUnscopedResource(t *testing.T) {
	mw := newTestMiddleware(NewPermissionSet(nil))

	require.Panics(t, func() {
		mw.RequireInstance(ResourceRole, ActionRead, "id")
	})
}

func TestMustRequirePanicsOnUnknownNames(t *testing.T) {
	mw := newTestMiddleware(NewPermissionSet(nil))

	require.Panics(t, func() { mw.MustRequire("invoice", "read") })
	require.Panics(t, func() { mw.MustRequire("role", "publish") })
	require.NotPanics(t, func() { mw.MustRequire("role", "read") })
}

func TestRequirePanicsOnInvalidPair(t *testing.T) {
	mw := newTestMiddleware(NewPermissionSet(nil))

	require.Panics(t, func() { mw.Require(Resource("bogus"), ActionRead) })
	require.Panics(t, func() { mw.Require(ResourceRole, Action("bogus")) })
}

func TestRequireReResolvesPerRequest(t *testing.T) {
	resolver := &stubResolver{perms: NewPermissionSet(nil)}
	engine := NewEngine(resolver, &stubGrants{}, nil, nil)
	mw := Middleware{Engine: engine}

	handler := mw.Require(ResourceSfiaSkill, ActionRead)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/sfia/skills", 7))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Permissions changed between requests; the next check sees the change.
	resolver.perms = NewPermissionSet([]Permission{
		{Resource: ResourceSfiaSkill, Action: ActionRead},
	})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/sfia/skills", 7))
	require.Equal(t, http.StatusOK, rec.Code)
}
