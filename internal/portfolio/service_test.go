package portfolio

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/skillatlas/skillatlas/internal/shared"
)

type memoryPortfolioRepo struct {
	portfolios map[uuid.UUID]Portfolio
	grants     map[uuid.UUID]int64
}

func newMemoryPortfolioRepo() *memoryPortfolioRepo {
	return &memoryPortfolioRepo{
		portfolios: make(map[uuid.UUID]Portfolio),
		grants:     make(map[uuid.UUID]int64),
	}
}

func (r *memoryPortfolioRepo) Create(ctx context.Context, actorID int64, p Portfolio) (Portfolio, error) {
	r.portfolios[p.ID] = p
	r.grants[p.ID] = p.OwnerID
	return p, nil
}

func (r *memoryPortfolioRepo) Get(ctx context.Context, id uuid.UUID) (Portfolio, error) {
	p, ok := r.portfolios[id]
	if !ok {
		return Portfolio{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryPortfolioRepo) List(ctx context.Context) ([]Portfolio, error) {
	out := make([]Portfolio, 0, len(r.portfolios))
	for _, p := range r.portfolios {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryPortfolioRepo) ListByOwner(ctx context.Context, ownerID int64) ([]Portfolio, error) {
	var out []Portfolio
	for _, p := range r.portfolios {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryPortfolioRepo) Update(ctx context.Context, actorID int64, id uuid.UUID, title, summary string) (Portfolio, error) {
	p, ok := r.portfolios[id]
	if !ok {
		return Portfolio{}, shared.ErrNotFound
	}
	p.Title = title
	p.Summary = summary
	r.portfolios[id] = p
	return p, nil
}

func (r *memoryPortfolioRepo) Delete(ctx context.Context, actorID int64, id uuid.UUID) error {
	if _, ok := r.portfolios[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.portfolios, id)
	delete(r.grants, id)
	return nil
}

func TestCreatePortfolio(t *testing.T) {
	repo := newMemoryPortfolioRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), 42, "  My portfolio  ", " evidence ")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, p.ID)
	require.Equal(t, int64(42), p.OwnerID)
	require.Equal(t, "My portfolio", p.Title)
	require.Equal(t, "evidence", p.Summary)

	// The owner grant is written with the portfolio.
	require.Equal(t, int64(42), repo.grants[p.ID])
}

func TestCreatePortfolioRequiresTitle(t *testing.T) {
	svc := NewService(newMemoryPortfolioRepo())

	_, err := svc.Create(context.Background(), 42, "   ", "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListOwn(t *testing.T) {
	repo := newMemoryPortfolioRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), 42, "Mine", "")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 43, "Someone else's", "")
	require.NoError(t, err)

	own, err := svc.ListOwn(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, "Mine", own[0].Title)
}

func TestUpdatePortfolio(t *testing.T) {
	repo := newMemoryPortfolioRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), 42, "Draft", "")
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), 42, p.ID, "Final", "done")
	require.NoError(t, err)
	require.Equal(t, "Final", updated.Title)

	_, err = svc.Update(context.Background(), 42, uuid.New(), "Missing", "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
