package sfia

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

const selectSkill = `
SELECT id, code, name, category, subcategory, level_min, level_max, overview, created_at, updated_at
FROM sfia_skills`

func (r *Repository) ListSkills(ctx context.Context) ([]Skill, error) {
	rows, err := r.pool.Query(ctx, selectSkill+` ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list sfia skills: %w", err)
	}
	defer rows.Close()
	var out []Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) GetSkill(ctx context.Context, id int64) (Skill, error) {
	return scanSkill(r.pool.QueryRow(ctx, selectSkill+` WHERE id = $1`, id))
}

func (r *Repository) CreateSkill(ctx context.Context, actorID int64, s Skill) (Skill, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO sfia_skills (code, name, category, subcategory, level_min, level_max, overview)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at, updated_at`,
			s.Code, s.Name, s.Category, s.Subcategory, s.LevelMin, s.LevelMax, s.Overview,
		)
		if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: skill code %q already exists", shared.ErrConflict, s.Code)
			}
			return fmt.Errorf("insert sfia skill: %w", err)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "sfia.skill.create",
			Entity:   "sfia_skill",
			EntityID: s.Code,
			Meta:     map[string]any{"name": s.Name, "category": s.Category},
		})
	})
	if err != nil {
		return Skill{}, err
	}
	return s, nil
}

func (r *Repository) UpdateSkill(ctx context.Context, actorID int64, s Skill) (Skill, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE sfia_skills
			 SET name = $2, category = $3, subcategory = $4, level_min = $5, level_max = $6, overview = $7, updated_at = NOW()
			 WHERE id = $1
			 RETURNING code, created_at, updated_at`,
			s.ID, s.Name, s.Category, s.Subcategory, s.LevelMin, s.LevelMax, s.Overview,
		)
		if err := row.Scan(&s.Code, &s.CreatedAt, &s.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("update sfia skill: %w", err)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "sfia.skill.update",
			Entity:   "sfia_skill",
			EntityID: s.Code,
		})
	})
	if err != nil {
		return Skill{}, err
	}
	return s, nil
}

func (r *Repository) DeleteSkill(ctx context.Context, actorID int64, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var code string
		err := tx.QueryRow(ctx, `DELETE FROM sfia_skills WHERE id = $1 RETURNING code`, id).Scan(&code)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("delete sfia skill: %w", err)
		}
		return r.audit.Record(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   "sfia.skill.delete",
			Entity:   "sfia_skill",
			EntityID: code,
		})
	})
}

func scanSkill(row pgx.Row) (Skill, error) {
	var s Skill
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Category, &s.Subcategory,
		&s.LevelMin, &s.LevelMax, &s.Overview, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Skill{}, shared.ErrNotFound
	}
	if err != nil {
		return Skill{}, fmt.Errorf("scan sfia skill: %w", err)
	}
	return s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
