package tpqi

import (
	"context"
	"fmt"
	"strings"

	"github.com/skillatlas/skillatlas/internal/shared"
)

type RepositoryPort interface {
	ListCareers(ctx context.Context) ([]Career, error)
	GetCareer(ctx context.Context, id int64) (Career, error)
	CreateCareer(ctx context.Context, actorID int64, c Career) (Career, error)
	UpdateCareer(ctx context.Context, actorID int64, c Career) (Career, error)
	DeleteCareer(ctx context.Context, actorID, id int64) error
}

type Service struct {
	repo RepositoryPort
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListCareers(ctx context.Context) ([]Career, error) {
	return s.repo.ListCareers(ctx)
}

func (s *Service) GetCareer(ctx context.Context, id int64) (Career, error) {
	return s.repo.GetCareer(ctx, id)
}

func (s *Service) CreateCareer(ctx context.Context, actorID int64, c Career) (Career, error) {
	if err := normalize(&c); err != nil {
		return Career{}, err
	}
	return s.repo.CreateCareer(ctx, actorID, c)
}

func (s *Service) UpdateCareer(ctx context.Context, actorID int64, c Career) (Career, error) {
	if err := normalize(&c); err != nil {
		return Career{}, err
	}
	return s.repo.UpdateCareer(ctx, actorID, c)
}

func (s *Service) DeleteCareer(ctx context.Context, actorID, id int64) error {
	return s.repo.DeleteCareer(ctx, actorID, id)
}

func normalize(c *Career) error {
	c.Sector = strings.TrimSpace(c.Sector)
	c.Name = strings.TrimSpace(c.Name)
	if c.Sector == "" || c.Name == "" {
		return fmt.Errorf("%w: sector and name are required", shared.ErrValidation)
	}
	return nil
}
