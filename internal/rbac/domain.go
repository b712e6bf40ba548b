// Package rbac implements the authorization core: the role/permission data
// model, the policy store, the permission resolver and the decision engine
// consulted by the route-guarding middleware.
package rbac

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors surfaced by the policy store and administration service.
var (
	ErrNotFound   = errors.New("rbac: not found")
	ErrConflict   = errors.New("rbac: duplicate assignment")
	ErrValidation = errors.New("rbac: invalid value")
)

// Action is a capability on a resource. The set is closed; anything outside
// it is a configuration error, never a runtime decision.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionManage subsumes all other actions on the same resource
	// during evaluation.
	ActionManage Action = "manage"
)

// Actions returns every valid action.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage}
}

// Valid reports whether the action is part of the closed set.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage:
		return true
	}
	return false
}

// ParseAction validates a raw action name.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if !a.Valid() {
		return "", fmt.Errorf("%w: action %q", ErrValidation, raw)
	}
	return a, nil
}

// Resource identifies a protectable entity kind. Identifiers are globally
// unique; new resources are added here, never as free-form strings.
type Resource string

const (
	ResourceUser          Resource = "user"
	ResourceRole          Resource = "role"
	ResourcePermission    Resource = "permission"
	ResourceUserRole      Resource = "userRole"
	ResourceAsset         Resource = "asset"
	ResourceAssetInstance Resource = "assetInstance"
	ResourceAuditLog      Resource = "auditLog"

	ResourceSfiaSkill       Resource = "sfiaSkill"
	ResourceSfiaCategory    Resource = "sfiaCategory"
	ResourceSfiaSubcategory Resource = "sfiaSubcategory"
	ResourceSfiaLevel       Resource = "sfiaLevel"
	ResourceSfiaDescription Resource = "sfiaDescription"

	ResourceTpqiSector Resource = "tpqiSector"
	ResourceTpqiCareer Resource = "tpqiCareer"
	ResourceTpqiUnit   Resource = "tpqiUnit"
	ResourceTpqiSkill  Resource = "tpqiSkill"

	ResourcePortfolio Resource = "portfolio"
)

var allResources = []Resource{
	ResourceUser, ResourceRole, ResourcePermission, ResourceUserRole,
	ResourceAsset, ResourceAssetInstance, ResourceAuditLog,
	ResourceSfiaSkill, ResourceSfiaCategory, ResourceSfiaSubcategory,
	ResourceSfiaLevel, ResourceSfiaDescription,
	ResourceTpqiSector, ResourceTpqiCareer, ResourceTpqiUnit, ResourceTpqiSkill,
	ResourcePortfolio,
}

// instanceScoped maps resources backed by an Asset/AssetInstance pair to
// their asset type identifier in the grant table.
var instanceScoped = map[Resource]string{
	ResourcePortfolio: "portfolio",
}

// Resources returns every valid resource.
func Resources() []Resource {
	out := make([]Resource, len(allResources))
	copy(out, allResources)
	return out
}

// Valid reports whether the resource is part of the closed set.
func (r Resource) Valid() bool {
	for _, known := range allResources {
		if r == known {
			return true
		}
	}
	return false
}

// AssetType returns the grant-table asset type for an instance-scoped
// resource, or false for resources guarded by role permissions alone.
func (r Resource) AssetType() (string, bool) {
	t, ok := instanceScoped[r]
	return t, ok
}

// ParseResource validates a raw resource name.
func ParseResource(raw string) (Resource, error) {
	r := Resource(raw)
	if !r.Valid() {
		return "", fmt.Errorf("%w: resource %q", ErrValidation, raw)
	}
	return r, nil
}

// Permission is the (resource, action) pair, uniquely identified.
type Permission struct {
	ID          int64
	Resource    Resource
	Action      Action
	Description string
}

// Role is a named set of permissions.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserRole assigns a role to a user. A (user, role) pair exists at most once.
type UserRole struct {
	UserID     int64
	RoleID     int64
	AssignedAt time.Time
}

// AssetGrant gives a user rights over one concrete asset instance,
// independent of role permissions. It never cascades to sibling instances.
type AssetGrant struct {
	UserID     int64
	AssetType  string
	InstanceID uuid.UUID
	GrantedAt  time.Time
}

// DenyReason classifies a negative decision.
type DenyReason string

const (
	ReasonInsufficientPermission DenyReason = "insufficient_permission"
	// ReasonStoreUnavailable marks fail-closed denials when the policy
	// store cannot be reached.
	ReasonStoreUnavailable DenyReason = "store_unavailable"
)

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Allow returns a positive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a negative decision with the given reason.
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// PermissionSet is the effective permission set of one user.
type PermissionSet map[Resource]map[Action]struct{}

// NewPermissionSet builds a set from resolved permissions.
func NewPermissionSet(perms []Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		actions, ok := set[p.Resource]
		if !ok {
			actions = make(map[Action]struct{}, 2)
			set[p.Resource] = actions
		}
		actions[p.Action] = struct{}{}
	}
	return set
}

// Has reports whether the set grants the action on the resource, either
// directly or through manage.
func (s PermissionSet) Has(resource Resource, action Action) bool {
	actions, ok := s[resource]
	if !ok {
		return false
	}
	if _, ok := actions[action]; ok {
		return true
	}
	_, ok = actions[ActionManage]
	return ok
}
