package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// RepositoryPort defines the policy store operations the administration
// service orchestrates.
type RepositoryPort interface {
	GetRole(ctx context.Context, id int64) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)
	PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]Permission, error)
	AssetGrantsForUser(ctx context.Context, userID int64) ([]AssetGrant, error)
	UsersWithRole(ctx context.Context, roleID int64) ([]int64, error)

	CreateRole(ctx context.Context, actorID int64, name, description string) (Role, error)
	UpdateRole(ctx context.Context, actorID, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, actorID, id int64) error
	CreatePermission(ctx context.Context, actorID int64, resource Resource, action Action, description string) (Permission, error)
	DeletePermission(ctx context.Context, actorID, id int64) error
	AttachPermission(ctx context.Context, actorID, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, actorID, roleID, permissionID int64) error
	AssignRole(ctx context.Context, actorID, userID, roleID int64) error
	RevokeRole(ctx context.Context, actorID, userID, roleID int64) error
	GrantInstance(ctx context.Context, actorID, userID int64, assetType string, instanceID uuid.UUID) error
	RevokeInstance(ctx context.Context, actorID, userID int64, assetType string, instanceID uuid.UUID) error
}

// Invalidator drops cached permission resolutions for users.
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...int64)
}

// Service is the role/permission administration API. It layers cross-entity
// business rules over the policy store and keeps the resolver cache honest.
type Service struct {
	repo     RepositoryPort
	resolver Invalidator
	logger   *slog.Logger
}

// NewService constructs the administration service.
func NewService(repo RepositoryPort, resolver Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, resolver: resolver, logger: logger}
}

// RoleDetail bundles a role with its attached permissions.
type RoleDetail struct {
	Role        Role
	Permissions []Permission
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role with its permission set.
func (s *Service) GetRole(ctx context.Context, id int64) (RoleDetail, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return RoleDetail{}, err
	}
	perms, err := s.repo.PermissionsForRole(ctx, id)
	if err != nil {
		return RoleDetail{}, err
	}
	return RoleDetail{Role: role, Permissions: perms}, nil
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, actorID int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", ErrValidation)
	}
	return s.repo.CreateRole(ctx, actorID, name, strings.TrimSpace(description))
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", ErrValidation)
	}
	return s.repo.UpdateRole(ctx, actorID, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role. A role still assigned to users cannot be
// deleted; callers must revoke every assignment first. The store enforces
// the rule atomically with the delete.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	return s.repo.DeleteRole(ctx, actorID, id)
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreatePermission registers a permission for a (resource, action) pair.
// Both names are validated against the closed enumerations.
func (s *Service) CreatePermission(ctx context.Context, actorID int64, rawResource, rawAction, description string) (Permission, error) {
	resource, err := ParseResource(rawResource)
	if err != nil {
		return Permission{}, err
	}
	action, err := ParseAction(rawAction)
	if err != nil {
		return Permission{}, err
	}
	return s.repo.CreatePermission(ctx, actorID, resource, action, strings.TrimSpace(description))
}

// DeletePermission removes a permission. A permission referenced by any role
// cannot be deleted; detach it from every role first. The reference check
// shares the delete transaction in the store.
func (s *Service) DeletePermission(ctx context.Context, actorID, id int64) error {
	return s.repo.DeletePermission(ctx, actorID, id)
}

// AttachPermission adds a permission to a role and invalidates every holder
// of the role.
func (s *Service) AttachPermission(ctx context.Context, actorID, roleID, permissionID int64) error {
	if err := s.repo.AttachPermission(ctx, actorID, roleID, permissionID); err != nil {
		return err
	}
	s.invalidateRoleHolders(ctx, roleID)
	return nil
}

// DetachPermission removes a permission from a role and invalidates every
// holder. Other roles sharing the permission are unaffected.
func (s *Service) DetachPermission(ctx context.Context, actorID, roleID, permissionID int64) error {
	if err := s.repo.DetachPermission(ctx, actorID, roleID, permissionID); err != nil {
		return err
	}
	s.invalidateRoleHolders(ctx, roleID)
	return nil
}

// AssignRole assigns a role to a user.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.AssignRole(ctx, actorID, userID, roleID); err != nil {
		return err
	}
	s.resolver.Invalidate(ctx, userID)
	return nil
}

// RevokeRole revokes a role from a user. The role object survives for other
// holders; only the assignment row is deleted.
func (s *Service) RevokeRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.RevokeRole(ctx, actorID, userID, roleID); err != nil {
		return err
	}
	s.resolver.Invalidate(ctx, userID)
	return nil
}

// RolesForUser lists the roles assigned to a user.
func (s *Service) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	return s.repo.RolesForUser(ctx, userID)
}

// EffectivePermissions exposes the resolved permission union for inspection.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]Permission, error) {
	return s.repo.EffectivePermissions(ctx, userID)
}

// AssetGrantsForUser lists instance grants held by a user.
func (s *Service) AssetGrantsForUser(ctx context.Context, userID int64) ([]AssetGrant, error) {
	return s.repo.AssetGrantsForUser(ctx, userID)
}

// GrantInstance gives a user rights over one asset instance of an
// instance-scoped resource.
func (s *Service) GrantInstance(ctx context.Context, actorID, userID int64, rawResource string, instanceID uuid.UUID) (string, error) {
	assetType, err := assetTypeFor(rawResource)
	if err != nil {
		return "", err
	}
	if err := s.repo.GrantInstance(ctx, actorID, userID, assetType, instanceID); err != nil {
		return "", err
	}
	return assetType, nil
}

// RevokeInstance removes an instance grant. Grants on other instances of the
// same asset are untouched.
func (s *Service) RevokeInstance(ctx context.Context, actorID, userID int64, rawResource string, instanceID uuid.UUID) error {
	assetType, err := assetTypeFor(rawResource)
	if err != nil {
		return err
	}
	return s.repo.RevokeInstance(ctx, actorID, userID, assetType, instanceID)
}

func (s *Service) invalidateRoleHolders(ctx context.Context, roleID int64) {
	users, err := s.repo.UsersWithRole(ctx, roleID)
	if err != nil {
		// The cache has a TTL; a missed invalidation heals, but log it.
		s.logger.Warn("list role holders for invalidation",
			slog.Int64("role", roleID), slog.Any("error", err))
		return
	}
	s.resolver.Invalidate(ctx, users...)
}

func assetTypeFor(rawResource string) (string, error) {
	resource, err := ParseResource(rawResource)
	if err != nil {
		return "", err
	}
	assetType, ok := resource.AssetType()
	if !ok {
		return "", fmt.Errorf("%w: resource %q is not instance-scoped", ErrValidation, rawResource)
	}
	return assetType, nil
}
