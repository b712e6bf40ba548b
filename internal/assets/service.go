package assets

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/skillatlas/skillatlas/internal/rbac"
	"github.com/skillatlas/skillatlas/internal/shared"
)

// RepositoryPort defines data access methods for assets.
type RepositoryPort interface {
	ListAssets(ctx context.Context) ([]Asset, error)
	UpsertAsset(ctx context.Context, assetType, description string) error
	ListInstances(ctx context.Context, assetType string) ([]AssetInstance, error)
	GetInstance(ctx context.Context, id uuid.UUID) (AssetInstance, error)
	CreateInstance(ctx context.Context, assetType, name string) (AssetInstance, error)
	DeleteInstance(ctx context.Context, id uuid.UUID) error
}

// Service handles asset registry business logic. Asset types mirror the
// instance-scoped resources of the authorization enumeration; free-form
// types are rejected.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListAssets returns all asset types.
func (s *Service) ListAssets(ctx context.Context) ([]Asset, error) {
	return s.repo.ListAssets(ctx)
}

// ListInstances returns instances for a validated asset type.
func (s *Service) ListInstances(ctx context.Context, rawResource string) ([]AssetInstance, error) {
	assetType, err := validateType(rawResource)
	if err != nil {
		return nil, err
	}
	return s.repo.ListInstances(ctx, assetType)
}

// GetInstance fetches one instance.
func (s *Service) GetInstance(ctx context.Context, id uuid.UUID) (AssetInstance, error) {
	return s.repo.GetInstance(ctx, id)
}

// CreateInstance registers a new instance of a validated asset type.
func (s *Service) CreateInstance(ctx context.Context, rawResource, name string) (AssetInstance, error) {
	assetType, err := validateType(rawResource)
	if err != nil {
		return AssetInstance{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return AssetInstance{}, fmt.Errorf("%w: instance name required", shared.ErrValidation)
	}
	return s.repo.CreateInstance(ctx, assetType, name)
}

// DeleteInstance removes an instance.
func (s *Service) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteInstance(ctx, id)
}

func validateType(rawResource string) (string, error) {
	resource, err := rbac.ParseResource(rawResource)
	if err != nil {
		return "", fmt.Errorf("%w: unknown resource %q", shared.ErrValidation, rawResource)
	}
	assetType, ok := resource.AssetType()
	if !ok {
		return "", fmt.Errorf("%w: resource %q is not instance-scoped", shared.ErrValidation, rawResource)
	}
	return assetType, nil
}
