package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillatlas/skillatlas/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListAssets returns all registered asset types.
func (r *Repository) ListAssets(ctx context.Context) ([]Asset, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT type, description, created_at FROM assets ORDER BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.Type, &a.Description, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertAsset registers an asset type.
func (r *Repository) UpsertAsset(ctx context.Context, assetType, description string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO assets (type, description, created_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (type) DO UPDATE SET description = EXCLUDED.description`,
		assetType, description)
	return err
}

// ListInstances returns instances of one asset type.
func (r *Repository) ListInstances(ctx context.Context, assetType string) ([]AssetInstance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, asset_type, name, created_at FROM asset_instances WHERE asset_type = $1 ORDER BY created_at`,
		assetType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AssetInstance
	for rows.Next() {
		var inst AssetInstance
		if err := rows.Scan(&inst.ID, &inst.AssetType, &inst.Name, &inst.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// GetInstance fetches one instance by id.
func (r *Repository) GetInstance(ctx context.Context, id uuid.UUID) (AssetInstance, error) {
	var inst AssetInstance
	err := r.pool.QueryRow(ctx,
		`SELECT id, asset_type, name, created_at FROM asset_instances WHERE id = $1`, id).
		Scan(&inst.ID, &inst.AssetType, &inst.Name, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AssetInstance{}, fmt.Errorf("%w: instance %s", shared.ErrNotFound, id)
		}
		return AssetInstance{}, err
	}
	return inst, nil
}

// CreateInstance registers a new instance.
func (r *Repository) CreateInstance(ctx context.Context, assetType, name string) (AssetInstance, error) {
	var inst AssetInstance
	err := r.pool.QueryRow(ctx,
		`INSERT INTO asset_instances (id, asset_type, name, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING id, asset_type, name, created_at`,
		uuid.New(), assetType, name).
		Scan(&inst.ID, &inst.AssetType, &inst.Name, &inst.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return AssetInstance{}, fmt.Errorf("%w: asset type %q", shared.ErrNotFound, assetType)
		}
		return AssetInstance{}, err
	}
	return inst, nil
}

// DeleteInstance removes an instance and its grants.
func (r *Repository) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM asset_instances WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: instance %s", shared.ErrNotFound, id)
	}
	return nil
}
