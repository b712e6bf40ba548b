package rbac

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the administration API. Every group is gated by the
// decision engine against the role/permission/userRole/assetInstance
// resources.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceRole, ActionRead))
			r.Get("/", h.listRoles)
			r.Get("/{id}", h.getRole)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceRole, ActionCreate))
			r.Post("/", h.createRole)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceRole, ActionUpdate))
			r.Put("/{id}", h.updateRole)
			r.Post("/{id}/permissions", h.attachPermission)
			r.Delete("/{id}/permissions/{permissionID}", h.detachPermission)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceRole, ActionDelete))
			r.Delete("/{id}", h.deleteRole)
		})
	})

	r.Route("/permissions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourcePermission, ActionRead))
			r.Get("/", h.listPermissions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourcePermission, ActionCreate))
			r.Post("/", h.createPermission)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourcePermission, ActionDelete))
			r.Delete("/{id}", h.deletePermission)
		})
	})

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceUserRole, ActionRead))
			r.Get("/roles", h.listUserRoles)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceUserRole, ActionCreate))
			r.Post("/roles", h.assignRole)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceUserRole, ActionDelete))
			r.Delete("/roles/{roleID}", h.revokeRole)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourcePermission, ActionRead))
			r.Get("/permissions", h.listUserPermissions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceAssetInstance, ActionRead))
			r.Get("/grants", h.listGrants)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceAssetInstance, ActionCreate))
			r.Post("/grants", h.grantInstance)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Require(ResourceAssetInstance, ActionDelete))
			r.Delete("/grants/{resource}/{instanceID}", h.revokeInstance)
		})
	})
}
