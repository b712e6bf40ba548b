package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillatlas/skillatlas/internal/audit"
	"github.com/skillatlas/skillatlas/internal/platform/db"
	"github.com/skillatlas/skillatlas/internal/shared"
)

const assetType = "portfolio"

type Repository struct {
	pool  *pgxpool.Pool
	audit *audit.Logger
}

func NewRepository(pool *pgxpool.Pool, auditLogger *audit.Logger) *Repository {
	return &Repository{pool: pool, audit: auditLogger}
}

const selectPortfolio = `
SELECT p.id, p.owner_id, p.title, p.summary, p.created_at, p.updated_at
FROM portfolios p`

// Create registers the portfolio as an asset instance, stores its content and
// grants the owner access to the new instance, all in one transaction.
// A half-created portfolio with no owner grant cannot occur.
func (r *Repository) Create(ctx context.Context, actorID int64, p Portfolio) (Portfolio, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO asset_instances (id, asset_type, name) VALUES ($1, $2, $3)`,
			p.ID, assetType, p.Title,
		); err != nil {
			return fmt.Errorf("insert asset instance: %w", err)
		}
		row := tx.QueryRow(ctx,
			`INSERT INTO portfolios (id, owner_id, title, summary)
			 VALUES ($1, $2, $3, $4)
			 RETURNING created_at, updated_at`,
			p.ID, p.OwnerID, p.Title, p.Summary,
		)
		if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("insert portfolio: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_asset_instances (user_id, asset_type, instance_id)
			 VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`,
			p.OwnerID, assetType, p.ID,
		); err != nil {
			return fmt.Errorf("grant owner: %w", err)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "portfolio.create",
			Entity:   "portfolio",
			EntityID: p.ID.String(),
			Meta:     map[string]any{"owner_id": p.OwnerID, "title": p.Title},
		})
	})
	if err != nil {
		return Portfolio{}, err
	}
	return p, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Portfolio, error) {
	row := r.pool.QueryRow(ctx, selectPortfolio+` WHERE p.id = $1`, id)
	return scanPortfolio(row)
}

func (r *Repository) List(ctx context.Context) ([]Portfolio, error) {
	rows, err := r.pool.Query(ctx, selectPortfolio+` ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	defer rows.Close()
	return collectPortfolios(rows)
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]Portfolio, error) {
	rows, err := r.pool.Query(ctx,
		selectPortfolio+` WHERE p.owner_id = $1 ORDER BY p.created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list portfolios by owner: %w", err)
	}
	defer rows.Close()
	return collectPortfolios(rows)
}

func (r *Repository) Update(ctx context.Context, actorID int64, id uuid.UUID, title, summary string) (Portfolio, error) {
	var p Portfolio
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE portfolios SET title = $2, summary = $3, updated_at = NOW()
			 WHERE id = $1
			 RETURNING id, owner_id, title, summary, created_at, updated_at`,
			id, title, summary,
		)
		var err error
		p, err = scanPortfolio(row)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE asset_instances SET name = $2 WHERE id = $1`, id, title,
		); err != nil {
			return fmt.Errorf("update asset instance name: %w", err)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "portfolio.update",
			Entity:   "portfolio",
			EntityID: id.String(),
			Meta:     map[string]any{"title": title},
		})
	})
	if err != nil {
		return Portfolio{}, err
	}
	return p, nil
}

// Delete removes the portfolio together with its asset instance row; the
// instance grants go with it via the foreign key cascade.
func (r *Repository) Delete(ctx context.Context, actorID int64, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete portfolio: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM asset_instances WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete asset instance: %w", err)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "portfolio.delete",
			Entity:   "portfolio",
			EntityID: id.String(),
		})
	})
}

func scanPortfolio(row pgx.Row) (Portfolio, error) {
	var p Portfolio
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Summary, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Portfolio{}, shared.ErrNotFound
	}
	if err != nil {
		return Portfolio{}, fmt.Errorf("scan portfolio: %w", err)
	}
	return p, nil
}

func collectPortfolios(rows pgx.Rows) ([]Portfolio, error) {
	var out []Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
