package rbac

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillatlas/skillatlas/internal/audit"
	"github.com/skillatlas/skillatlas/internal/platform/db"
)

// Repository is the PostgreSQL policy store. Every mutation runs in a single
// transaction that also appends the audit entry, so an assignment without its
// log entry (or the reverse) can never be observed.
type Repository struct {
	pool  *pgxpool.Pool
	audit *audit.Logger
}

// NewRepository constructs the policy store.
func NewRepository(pool *pgxpool.Pool, auditLogger *audit.Logger) *Repository {
	return &Repository{pool: pool, audit: auditLogger}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// Reads

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("%w: role %d", ErrNotFound, id)
		}
		return Role{}, err
	}
	return role, nil
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListPermissions returns all permissions ordered by resource then action.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, resource, action, description FROM permissions ORDER BY resource, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// RolesForUser returns the roles currently assigned to a user.
func (r *Repository) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1
		 ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// PermissionsForRole returns the permissions attached to a role.
func (r *Repository) PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.resource, p.action, p.description
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1
		 ORDER BY p.resource, p.action`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// EffectivePermissions unions the permission sets of every role assigned to
// the user. Reads are strongly consistent with committed writes.
func (r *Repository) EffectivePermissions(ctx context.Context, userID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT p.id, p.resource, p.action, p.description
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 JOIN user_roles ur ON ur.role_id = rp.role_id
		 WHERE ur.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// HasAssetGrant reports whether the user holds a grant for the exact
// (asset type, instance) pair.
func (r *Repository) HasAssetGrant(ctx context.Context, userID int64, assetType string, instanceID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM user_asset_instances
			WHERE user_id = $1 AND asset_type = $2 AND instance_id = $3
		)`, userID, assetType, instanceID).Scan(&exists)
	return exists, err
}

// AssetGrantsForUser lists all instance grants held by a user.
func (r *Repository) AssetGrantsForUser(ctx context.Context, userID int64) ([]AssetGrant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, asset_type, instance_id, granted_at
		 FROM user_asset_instances WHERE user_id = $1
		 ORDER BY granted_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []AssetGrant
	for rows.Next() {
		var g AssetGrant
		if err := rows.Scan(&g.UserID, &g.AssetType, &g.InstanceID, &g.GrantedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// UsersWithRole returns ids of all users holding the role. The resolver uses
// it to invalidate cached permission sets after role-level mutations.
func (r *Repository) UsersWithRole(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM user_roles WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// Mutations

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, actorID int64, name, description string) (Role, error) {
	var role Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO roles (name, description, created_at, updated_at)
			 VALUES ($1, $2, NOW(), NOW())
			 RETURNING id, name, description, created_at, updated_at`,
			name, description).
			Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: role name %q", ErrConflict, name)
			}
			return err
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "role.create",
			Entity:   "role",
			EntityID: strconv.FormatInt(role.ID, 10),
			Meta:     map[string]any{"name": name},
		})
	})
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// UpdateRole updates an existing role.
func (r *Repository) UpdateRole(ctx context.Context, actorID, id int64, name, description string) (Role, error) {
	var role Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE roles SET name = $2, description = $3, updated_at = NOW()
			 WHERE id = $1
			 RETURNING id, name, description, created_at, updated_at`,
			id, name, description).
			Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: role %d", ErrNotFound, id)
			}
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: role name %q", ErrConflict, name)
			}
			return err
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "role.update",
			Entity:   "role",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"name": name},
		})
	})
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role and its permission attachments. The assignment
// check runs inside the delete transaction so a concurrent AssignRole cannot
// land between check and delete; the foreign key on user_roles backstops it.
func (r *Repository) DeleteRole(ctx context.Context, actorID, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var assigned int64
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, id).Scan(&assigned); err != nil {
			return err
		}
		if assigned > 0 {
			return fmt.Errorf("%w: role %d still assigned to %d user(s)", ErrConflict, id, assigned)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: role %d is still assigned", ErrConflict, id)
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: role %d", ErrNotFound, id)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "role.delete",
			Entity:   "role",
			EntityID: strconv.FormatInt(id, 10),
		})
	})
}

// CreatePermission inserts a permission for a validated (resource, action) pair.
func (r *Repository) CreatePermission(ctx context.Context, actorID int64, resource Resource, action Action, description string) (Permission, error) {
	var perm Permission
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO permissions (resource, action, description)
			 VALUES ($1, $2, $3)
			 RETURNING id, resource, action, description`,
			string(resource), string(action), description).
			Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Description)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: permission (%s, %s)", ErrConflict, resource, action)
			}
			return err
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "permission.create",
			Entity:   "permission",
			EntityID: strconv.FormatInt(perm.ID, 10),
			Meta:     map[string]any{"resource": string(resource), "action": string(action)},
		})
	})
	if err != nil {
		return Permission{}, err
	}
	return perm, nil
}

// DeletePermission removes a permission by ID. The reference check shares the
// delete transaction, mirroring DeleteRole.
func (r *Repository) DeletePermission(ctx context.Context, actorID, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var refs int64
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM role_permissions WHERE permission_id = $1`, id).Scan(&refs); err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: permission %d still attached to %d role(s)", ErrConflict, id, refs)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: permission %d is still attached", ErrConflict, id)
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: permission %d", ErrNotFound, id)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "permission.delete",
			Entity:   "permission",
			EntityID: strconv.FormatInt(id, 10),
		})
	})
}

// AttachPermission adds a permission to a role.
func (r *Repository) AttachPermission(ctx context.Context, actorID, roleID, permissionID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID, "role"); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM permissions WHERE id = $1)`, permissionID, "permission"); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id, created_at) VALUES ($1, $2, NOW())`,
			roleID, permissionID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: role %d already has permission %d", ErrConflict, roleID, permissionID)
			}
			return err
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "role.permission.attach",
			Entity:   "role_permission",
			EntityID: fmt.Sprintf("%d:%d", roleID, permissionID),
			Meta:     map[string]any{"role_id": roleID, "permission_id": permissionID},
		})
	})
}

// DetachPermission removes a permission from a role. The permission object
// itself is shared by reference and survives for other roles.
func (r *Repository) DetachPermission(ctx context.Context, actorID, roleID, permissionID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
			roleID, permissionID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: role %d has no permission %d", ErrNotFound, roleID, permissionID)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "role.permission.detach",
			Entity:   "role_permission",
			EntityID: fmt.Sprintf("%d:%d", roleID, permissionID),
			Meta:     map[string]any{"role_id": roleID, "permission_id": permissionID},
		})
	})
}

// AssignRole assigns a role to a user. Concurrent duplicate assignment
// resolves to exactly one surviving row; the losing writer observes
// ErrConflict and no audit entry is written for it.
func (r *Repository) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID, "user"); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID, "role"); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id, assigned_at) VALUES ($1, $2, NOW())`,
			userID, roleID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: user %d already holds role %d", ErrConflict, userID, roleID)
			}
			return err
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "user.role.assign",
			Entity:   "user_role",
			EntityID: fmt.Sprintf("%d:%d", userID, roleID),
			Meta:     map[string]any{"user_id": userID, "role_id": roleID},
		})
	})
}

// RevokeRole removes a role from a user. Revocation is a hard delete; the
// next decision evaluation no longer sees the assignment.
func (r *Repository) RevokeRole(ctx context.Context, actorID, userID, roleID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: user %d does not hold role %d", ErrNotFound, userID, roleID)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "user.role.revoke",
			Entity:   "user_role",
			EntityID: fmt.Sprintf("%d:%d", userID, roleID),
			Meta:     map[string]any{"user_id": userID, "role_id": roleID},
		})
	})
}

// GrantInstance gives a user rights over one asset instance.
func (r *Repository) GrantInstance(ctx context.Context, actorID, userID int64, assetType string, instanceID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID, "user"); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM asset_instances WHERE id = $1 AND asset_type = $2)`,
			instanceID, assetType).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s instance %s", ErrNotFound, assetType, instanceID)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_asset_instances (user_id, asset_type, instance_id, granted_at) VALUES ($1, $2, $3, NOW())`,
			userID, assetType, instanceID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: user %d already granted %s instance %s", ErrConflict, userID, assetType, instanceID)
			}
			return err
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "asset.grant",
			Entity:   "user_asset_instance",
			EntityID: fmt.Sprintf("%d:%s:%s", userID, assetType, instanceID),
			Meta:     map[string]any{"user_id": userID, "asset_type": assetType, "instance_id": instanceID.String()},
		})
	})
}

// RevokeInstance removes an instance grant.
func (r *Repository) RevokeInstance(ctx context.Context, actorID, userID int64, assetType string, instanceID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM user_asset_instances WHERE user_id = $1 AND asset_type = $2 AND instance_id = $3`,
			userID, assetType, instanceID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: user %d has no grant for %s instance %s", ErrNotFound, userID, assetType, instanceID)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "asset.revoke",
			Entity:   "user_asset_instance",
			EntityID: fmt.Sprintf("%d:%s:%s", userID, assetType, instanceID),
			Meta:     map[string]any{"user_id": userID, "asset_type": assetType, "instance_id": instanceID.String()},
		})
	})
}

func requireRow(ctx context.Context, tx pgx.Tx, query string, id int64, entity string) error {
	var exists bool
	if err := tx.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
	}
	return nil
}

func scanPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
