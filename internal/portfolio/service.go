package portfolio

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/skillatlas/skillatlas/internal/shared"
)

type RepositoryPort interface {
	Create(ctx context.Context, actorID int64, p Portfolio) (Portfolio, error)
	Get(ctx context.Context, id uuid.UUID) (Portfolio, error)
	List(ctx context.Context) ([]Portfolio, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Portfolio, error)
	Update(ctx context.Context, actorID int64, id uuid.UUID, title, summary string) (Portfolio, error)
	Delete(ctx context.Context, actorID int64, id uuid.UUID) error
}

type Service struct {
	repo RepositoryPort
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create opens a portfolio owned by the acting user. Ownership is fixed at
// creation; the instance grants written alongside it make the owner able to
// read and manage their own portfolio without any role assignment.
func (s *Service) Create(ctx context.Context, ownerID int64, title, summary string) (Portfolio, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Portfolio{}, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	return s.repo.Create(ctx, ownerID, Portfolio{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Title:   title,
		Summary: strings.TrimSpace(summary),
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Portfolio, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Portfolio, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListOwn(ctx context.Context, ownerID int64) ([]Portfolio, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) Update(ctx context.Context, actorID int64, id uuid.UUID, title, summary string) (Portfolio, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Portfolio{}, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	return s.repo.Update(ctx, actorID, id, title, strings.TrimSpace(summary))
}

func (s *Service) Delete(ctx context.Context, actorID int64, id uuid.UUID) error {
	return s.repo.Delete(ctx, actorID, id)
}
