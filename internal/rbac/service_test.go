package rbac

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryPolicyRepo struct {
	roles       map[int64]Role
	permissions map[int64]Permission
	rolePerms   map[int64]map[int64]struct{}
	userRoles   map[int64]map[int64]struct{}
	grants      map[string]struct{}
	nextRoleID  int64
	nextPermID  int64
}

func newMemoryPolicyRepo() *memoryPolicyRepo {
	return &memoryPolicyRepo{
		roles:       make(map[int64]Role),
		permissions: make(map[int64]Permission),
		rolePerms:   make(map[int64]map[int64]struct{}),
		userRoles:   make(map[int64]map[int64]struct{}),
		grants:      make(map[string]struct{}),
	}
}

func (r *memoryPolicyRepo) grantID(userID int64, assetType string, instanceID uuid.UUID) string {
	return fmt.Sprintf("%d:%s:%s", userID, assetType, instanceID)
}

func (r *memoryPolicyRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (r *memoryPolicyRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryPolicyRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(r.permissions))
	for _, p := range r.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryPolicyRepo) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	var out []Role
	for roleID := range r.userRoles[userID] {
		out = append(out, r.roles[roleID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryPolicyRepo) PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	var out []Permission
	for permID := range r.rolePerms[roleID] {
		out = append(out, r.permissions[permID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryPolicyRepo) EffectivePermissions(ctx context.Context, userID int64) ([]Permission, error) {
	seen := make(map[int64]struct{})
	var out []Permission
	for roleID := range r.userRoles[userID] {
		for permID := range r.rolePerms[roleID] {
			if _, ok := seen[permID]; ok {
				continue
			}
			seen[permID] = struct{}{}
			out = append(out, r.permissions[permID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryPolicyRepo) AssetGrantsForUser(ctx context.Context, userID int64) ([]AssetGrant, error) {
	return nil, nil
}

func (r *memoryPolicyRepo) UsersWithRole(ctx context.Context, roleID int64) ([]int64, error) {
	var out []int64
	for userID, roles := range r.userRoles {
		if _, ok := roles[roleID]; ok {
			out = append(out, userID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *memoryPolicyRepo) CreateRole(ctx context.Context, actorID int64, name, description string) (Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return Role{}, ErrConflict
		}
	}
	r.nextRoleID++
	role := Role{ID: r.nextRoleID, Name: name, Description: description}
	r.roles[role.ID] = role
	return role, nil
}

func (r *memoryPolicyRepo) UpdateRole(ctx context.Context, actorID, id int64, name, description string) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	role.Name = name
	role.Description = description
	r.roles[id] = role
	return role, nil
}

func (r *memoryPolicyRepo) DeleteRole(ctx context.Context, actorID, id int64) error {
	if _, ok := r.roles[id]; !ok {
		return ErrNotFound
	}
	for _, roles := range r.userRoles {
		if _, ok := roles[id]; ok {
			return ErrConflict
		}
	}
	delete(r.roles, id)
	delete(r.rolePerms, id)
	return nil
}

func (r *memoryPolicyRepo) CreatePermission(ctx context.Context, actorID int64, resource Resource, action Action, description string) (Permission, error) {
	for _, p := range r.permissions {
		if p.Resource == resource && p.Action == action {
			return Permission{}, ErrConflict
		}
	}
	r.nextPermID++
	perm := Permission{ID: r.nextPermID, Resource: resource, Action: action, Description: description}
	r.permissions[perm.ID] = perm
	return perm, nil
}

func (r *memoryPolicyRepo) DeletePermission(ctx context.Context, actorID, id int64) error {
	if _, ok := r.permissions[id]; !ok {
		return ErrNotFound
	}
	for _, perms := range r.rolePerms {
		if _, ok := perms[id]; ok {
			return ErrConflict
		}
	}
	delete(r.permissions, id)
	return nil
}

func (r *memoryPolicyRepo) AttachPermission(ctx context.Context, actorID, roleID, permissionID int64) error {
	if _, ok := r.roles[roleID]; !ok {
		return ErrNotFound
	}
	if _, ok := r.permissions[permissionID]; !ok {
		return ErrNotFound
	}
	perms, ok := r.rolePerms[roleID]
	if !ok {
		perms = make(map[int64]struct{})
		r.rolePerms[roleID] = perms
	}
	if _, exists := perms[permissionID]; exists {
		return ErrConflict
	}
	perms[permissionID] = struct{}{}
	return nil
}

func (r *memoryPolicyRepo) DetachPermission(ctx context.Context, actorID, roleID, permissionID int64) error {
	perms := r.rolePerms[roleID]
	if _, ok := perms[permissionID]; !ok {
		return ErrNotFound
	}
	delete(perms, permissionID)
	return nil
}

func (r *memoryPolicyRepo) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	if _, ok := r.roles[roleID]; !ok {
		return ErrNotFound
	}
	roles, ok := r.userRoles[userID]
	if !ok {
		roles = make(map[int64]struct{})
		r.userRoles[userID] = roles
	}
	if _, exists := roles[roleID]; exists {
		return ErrConflict
	}
	roles[roleID] = struct{}{}
	return nil
}

func (r *memoryPolicyRepo) RevokeRole(ctx context.Context, actorID, userID, roleID int64) error {
	roles := r.userRoles[userID]
	if _, ok := roles[roleID]; !ok {
		return ErrNotFound
	}
	delete(roles, roleID)
	return nil
}

func (r *memoryPolicyRepo) GrantInstance(ctx context.Context, actorID, userID int64, assetType string, instanceID uuid.UUID) error {
	key := r.grantID(userID, assetType, instanceID)
	if _, exists := r.grants[key]; exists {
		return ErrConflict
	}
	r.grants[key] = struct{}{}
	return nil
}

func (r *memoryPolicyRepo) RevokeInstance(ctx context.Context, actorID, userID int64, assetType string, instanceID uuid.UUID) error {
	key := r.grantID(userID, assetType, instanceID)
	if _, ok := r.grants[key]; !ok {
		return ErrNotFound
	}
	delete(r.grants, key)
	return nil
}

type recordingInvalidator struct {
	invalidated [][]int64
}

func (i *recordingInvalidator) Invalidate(ctx context.Context, userIDs ...int64) {
	i.invalidated = append(i.invalidated, userIDs)
}

func newTestService() (*Service, *memoryPolicyRepo, *recordingInvalidator) {
	repo := newMemoryPolicyRepo()
	inv := &recordingInvalidator{}
	return NewService(repo, inv, nil), repo, inv
}

func TestCreateRoleValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateRole(context.Background(), 1, "   ", "")
	require.ErrorIs(t, err, ErrValidation)

	role, err := svc.CreateRole(context.Background(), 1, "  Reviewer  ", " reads things ")
	require.NoError(t, err)
	require.Equal(t, "Reviewer", role.Name)
	require.Equal(t, "reads things", role.Description)
}

func TestDeleteRoleStillAssigned(t *testing.T) {
	svc, repo, _ := newTestService()

	role, err := svc.CreateRole(context.Background(), 1, "Reviewer", "")
	require.NoError(t, err)
	require.NoError(t, repo.AssignRole(context.Background(), 1, 42, role.ID))

	err = svc.DeleteRole(context.Background(), 1, role.ID)
	require.ErrorIs(t, err, ErrConflict)

	// After revoking the assignment the delete goes through.
	require.NoError(t, svc.RevokeRole(context.Background(), 1, 42, role.ID))
	require.NoError(t, svc.DeleteRole(context.Background(), 1, role.ID))
}

// racingAssignRepo injects a role assignment right as the delete executes,
// standing in for a concurrent AssignRole committing between an external
// check and the delete. The store's check is part of the delete itself, so
// the late assignment must still surface as a conflict.
type racingAssignRepo struct {
	*memoryPolicyRepo
	assignUser int64
}

func (r *racingAssignRepo) DeleteRole(ctx context.Context, actorID, id int64) error {
	if err := r.memoryPolicyRepo.AssignRole(ctx, actorID, r.assignUser, id); err != nil {
		return err
	}
	return r.memoryPolicyRepo.DeleteRole(ctx, actorID, id)
}

func TestDeleteRoleConcurrentAssignConflicts(t *testing.T) {
	mem := newMemoryPolicyRepo()
	repo := &racingAssignRepo{memoryPolicyRepo: mem, assignUser: 42}
	svc := NewService(repo, &recordingInvalidator{}, nil)

	role, err := svc.CreateRole(context.Background(), 1, "Reviewer", "")
	require.NoError(t, err)

	err = svc.DeleteRole(context.Background(), 1, role.ID)
	require.ErrorIs(t, err, ErrConflict)

	// The role survives and the assignment is not orphaned.
	_, ok := mem.roles[role.ID]
	require.True(t, ok)
	_, ok = mem.userRoles[42][role.ID]
	require.True(t, ok)
}

func TestCreatePermissionValidatesEnums(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreatePermission(context.Background(), 1, "invoice", "read", "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreatePermission(context.Background(), 1, "role", "publish", "")
	require.ErrorIs(t, err, ErrValidation)

	perm, err := svc.CreatePermission(context.Background(), 1, "role", "read", "view roles")
	require.NoError(t, err)
	require.Equal(t, ResourceRole, perm.Resource)
	require.Equal(t, ActionRead, perm.Action)
}

func TestCreatePermissionDuplicate(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreatePermission(context.Background(), 1, "role", "read", "")
	require.NoError(t, err)
	_, err = svc.CreatePermission(context.Background(), 1, "role", "read", "")
	require.ErrorIs(t, err, ErrConflict)
}

func TestDeletePermissionStillReferenced(t *testing.T) {
	svc, _, _ := newTestService()

	role, err := svc.CreateRole(context.Background(), 1, "Reviewer", "")
	require.NoError(t, err)
	perm, err := svc.CreatePermission(context.Background(), 1, "role", "read", "")
	require.NoError(t, err)
	require.NoError(t, svc.AttachPermission(context.Background(), 1, role.ID, perm.ID))

	err = svc.DeletePermission(context.Background(), 1, perm.ID)
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, svc.DetachPermission(context.Background(), 1, role.ID, perm.ID))
	require.NoError(t, svc.DeletePermission(context.Background(), 1, perm.ID))
}

func TestAssignRoleInvalidatesUser(t *testing.T) {
	svc, _, inv := newTestService()

	role, err := svc.CreateRole(context.Background(), 1, "Reviewer", "")
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(context.Background(), 1, 42, role.ID))
	require.Equal(t, [][]int64{{42}}, inv.invalidated)

	// Duplicate assignment conflicts and does not invalidate again.
	err = svc.AssignRole(context.Background(), 1, 42, role.ID)
	require.ErrorIs(t, err, ErrConflict)
	require.Len(t, inv.invalidated, 1)
}

func TestAttachPermissionInvalidatesRoleHolders(t *testing.T) {
	svc, _, inv := newTestService()

	role, err := svc.CreateRole(context.Background(), 1, "Reviewer", "")
	require.NoError(t, err)
	perm, err := svc.CreatePermission(context.Background(), 1, "sfiaSkill", "read", "")
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(context.Background(), 1, 42, role.ID))
	require.NoError(t, svc.AssignRole(context.Background(), 1, 43, role.ID))
	inv.invalidated = nil

	require.NoError(t, svc.AttachPermission(context.Background(), 1, role.ID, perm.ID))
	require.Equal(t, [][]int64{{42, 43}}, inv.invalidated)
}

func TestRevokeRoleLeavesRoleIntact(t *testing.T) {
	svc, _, _ := newTestService()

	role, err := svc.CreateRole(context.Background(), 1, "Reviewer", "")
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(context.Background(), 1, 42, role.ID))
	require.NoError(t, svc.AssignRole(context.Background(), 1, 43, role.ID))

	require.NoError(t, svc.RevokeRole(context.Background(), 1, 42, role.ID))

	detail, err := svc.GetRole(context.Background(), role.ID)
	require.NoError(t, err)
	require.Equal(t, "Reviewer", detail.Role.Name)

	roles, err := svc.RolesForUser(context.Background(), 43)
	require.NoError(t, err)
	require.Len(t, roles, 1)
}

func TestRevokeMissingAssignment(t *testing.T) {
	svc, _, _ := newTestService()

	role, err := svc.CreateRole(context.Background(), 1, "Reviewer", "")
	require.NoError(t, err)

	err = svc.RevokeRole(context.Background(), 1, 42, role.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGrantInstanceRequiresScopedResource(t *testing.T) {
	svc, repo, _ := newTestService()
	instance := uuid.New()

	_, err := svc.GrantInstance(context.Background(), 1, 42, "role", instance)
	require.ErrorIs(t, err, ErrValidation)

	assetType, err := svc.GrantInstance(context.Background(), 1, 42, "portfolio", instance)
	require.NoError(t, err)
	require.Equal(t, "portfolio", assetType)
	require.Contains(t, repo.grants, repo.grantID(42, "portfolio", instance))

	// Revoking one instance leaves grants on others untouched.
	other := uuid.New()
	_, err = svc.GrantInstance(context.Background(), 1, 42, "portfolio", other)
	require.NoError(t, err)
	require.NoError(t, svc.RevokeInstance(context.Background(), 1, 42, "portfolio", instance))
	require.Contains(t, repo.grants, repo.grantID(42, "portfolio", other))
}

func TestEffectivePermissionsUnion(t *testing.T) {
	svc, _, _ := newTestService()

	viewer, err := svc.CreateRole(context.Background(), 1, "Viewer", "")
	require.NoError(t, err)
	editor, err := svc.CreateRole(context.Background(), 1, "Editor", "")
	require.NoError(t, err)

	readPerm, err := svc.CreatePermission(context.Background(), 1, "sfiaSkill", "read", "")
	require.NoError(t, err)
	updatePerm, err := svc.CreatePermission(context.Background(), 1, "sfiaSkill", "update", "")
	require.NoError(t, err)

	require.NoError(t, svc.AttachPermission(context.Background(), 1, viewer.ID, readPerm.ID))
	require.NoError(t, svc.AttachPermission(context.Background(), 1, editor.ID, readPerm.ID))
	require.NoError(t, svc.AttachPermission(context.Background(), 1, editor.ID, updatePerm.ID))

	require.NoError(t, svc.AssignRole(context.Background(), 1, 42, viewer.ID))
	require.NoError(t, svc.AssignRole(context.Background(), 1, 42, editor.ID))

	perms, err := svc.EffectivePermissions(context.Background(), 42)
	require.NoError(t, err)
	// The shared read permission appears once in the union.
	require.Len(t, perms, 2)
}
