package sfia

import (
	"context"
	"fmt"
	"strings"

	"github.com/skillatlas/skillatlas/internal/shared"
)

type RepositoryPort interface {
	ListSkills(ctx context.Context) ([]Skill, error)
	GetSkill(ctx context.Context, id int64) (Skill, error)
	CreateSkill(ctx context.Context, actorID int64, s Skill) (Skill, error)
	UpdateSkill(ctx context.Context, actorID int64, s Skill) (Skill, error)
	DeleteSkill(ctx context.Context, actorID, id int64) error
}

type Service struct {
	repo RepositoryPort
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListSkills(ctx context.Context) ([]Skill, error) {
	return s.repo.ListSkills(ctx)
}

func (s *Service) GetSkill(ctx context.Context, id int64) (Skill, error) {
	return s.repo.GetSkill(ctx, id)
}

func (s *Service) CreateSkill(ctx context.Context, actorID int64, skill Skill) (Skill, error) {
	if err := normalize(&skill); err != nil {
		return Skill{}, err
	}
	return s.repo.CreateSkill(ctx, actorID, skill)
}

func (s *Service) UpdateSkill(ctx context.Context, actorID int64, skill Skill) (Skill, error) {
	if err := normalize(&skill); err != nil {
		return Skill{}, err
	}
	return s.repo.UpdateSkill(ctx, actorID, skill)
}

func (s *Service) DeleteSkill(ctx context.Context, actorID, id int64) error {
	return s.repo.DeleteSkill(ctx, actorID, id)
}

// SFIA levels of responsibility run from 1 (Follow) to 7 (Set strategy).
func normalize(s *Skill) error {
	s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
	s.Name = strings.TrimSpace(s.Name)
	s.Category = strings.TrimSpace(s.Category)
	s.Subcategory = strings.TrimSpace(s.Subcategory)
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if s.LevelMin < 1 || s.LevelMax > 7 || s.LevelMin > s.LevelMax {
		return fmt.Errorf("%w: level range must satisfy 1 <= min <= max <= 7", shared.ErrValidation)
	}
	return nil
}
