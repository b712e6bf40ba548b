package tpqi

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillatlas/skillatlas/internal/audit"
	"github.com/skillatlas/skillatlas/internal/platform/db"
	"github.com/skillatlas/skillatlas/internal/shared"
)

type Repository struct {
	pool  *pgxpool.Pool
	audit *audit.Logger
}

func NewRepository(pool *pgxpool.Pool, auditLogger *audit.Logger) *Repository {
	return &Repository{pool: pool, audit: auditLogger}
}

const selectCareer = `
SELECT id, sector, name, overview, created_at, updated_at
FROM tpqi_careers`

func (r *Repository) ListCareers(ctx context.Context) ([]Career, error) {
	rows, err := r.pool.Query(ctx, selectCareer+` ORDER BY sector, name`)
	if err != nil {
		return nil, fmt.Errorf("list tpqi careers: %w", err)
	}
	defer rows.Close()
	var out []Career
	for rows.Next() {
		c, err := scanCareer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetCareer(ctx context.Context, id int64) (Career, error) {
	return scanCareer(r.pool.QueryRow(ctx, selectCareer+` WHERE id = $1`, id))
}

func (r *Repository) CreateCareer(ctx context.Context, actorID int64, c Career) (Career, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO tpqi_careers (sector, name, overview)
			 VALUES ($1, $2, $3)
			 RETURNING id, created_at, updated_at`,
			c.Sector, c.Name, c.Overview,
		)
		if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: career %q already exists in sector %q", shared.ErrConflict, c.Name, c.Sector)
			}
			return fmt.Errorf("insert tpqi career: %w", err)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "tpqi.career.create",
			Entity:   "tpqi_career",
			EntityID: fmt.Sprintf("%d", c.ID),
			Meta:     map[string]any{"sector": c.Sector, "name": c.Name},
		})
	})
	if err != nil {
		return Career{}, err
	}
	return c, nil
}

func (r *Repository) UpdateCareer(ctx context.Context, actorID int64, c Career) (Career, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE tpqi_careers SET sector = $2, name = $3, overview = $4, updated_at = NOW()
			 WHERE id = $1
			 RETURNING created_at, updated_at`,
			c.ID, c.Sector, c.Name, c.Overview,
		)
		if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("update tpqi career: %w", err)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "tpqi.career.update",
			Entity:   "tpqi_career",
			EntityID: fmt.Sprintf("%d", c.ID),
		})
	})
	if err != nil {
		return Career{}, err
	}
	return c, nil
}

func (r *Repository) DeleteCareer(ctx context.Context, actorID, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tpqi_careers WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete tpqi career: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "tpqi.career.delete",
			Entity:   "tpqi_career",
			EntityID: fmt.Sprintf("%d", id),
		})
	})
}

func scanCareer(row pgx.Row) (Career, error) {
	var c Career
	err := row.Scan(&c.ID, &c.Sector, &c.Name, &c.Overview, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Career{}, shared.ErrNotFound
	}
	if err != nil {
		return Career{}, fmt.Errorf("scan tpqi career: %w", err)
	}
	return c, nil
}
