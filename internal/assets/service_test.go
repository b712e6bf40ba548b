package assets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/skillatlas/skillatlas/internal/shared"
)

type memoryAssetRepo struct {
	instances map[uuid.UUID]AssetInstance
}

func newMemoryAssetRepo() *memoryAssetRepo {
	return &memoryAssetRepo{instances: make(map[uuid.UUID]AssetInstance)}
}

func (r *memoryAssetRepo) ListAssets(ctx context.Context) ([]Asset, error) {
	return nil, nil
}

func (r *memoryAssetRepo) UpsertAsset(ctx context.Context, assetType, description string) error {
	return nil
}

func (r *memoryAssetRepo) ListInstances(ctx context.Context, assetType string) ([]AssetInstance, error) {
	out := make([]AssetInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		if inst.AssetType == assetType {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (r *memoryAssetRepo) GetInstance(ctx context.Context, id uuid.UUID) (AssetInstance, error) {
	inst, ok := r.instances[id]
	if !ok {
		return AssetInstance{}, shared.ErrNotFound
	}
	return inst, nil
}

func (r *memoryAssetRepo) CreateInstance(ctx context.Context, assetType, name string) (AssetInstance, error) {
	inst := AssetInstance{ID: uuid.New(), AssetType: assetType, Name: name}
	r.instances[inst.ID] = inst
	return inst, nil
}

func (r *memoryAssetRepo) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.instances[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.instances, id)
	return nil
}

func TestCreateInstanceValidatesType(t *testing.T) {
	svc := NewService(newMemoryAssetRepo())

	inst, err := svc.CreateInstance(context.Background(), "portfolio", " My Portfolio ")
	require.NoError(t, err)
	require.Equal(t, "portfolio", inst.AssetType)
	require.Equal(t, "My Portfolio", inst.Name)

	_, err = svc.CreateInstance(context.Background(), "invoice", "Nope")
	require.ErrorIs(t, err, shared.ErrValidation)

	// Known resource, but not instance-scoped.
	_, err = svc.CreateInstance(context.Background(), "role", "Nope")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateInstanceRequiresName(t *testing.T) {
	svc := NewService(newMemoryAssetRepo())

	_, err := svc.CreateInstance(context.Background(), "portfolio", "   ")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListInstancesByType(t *testing.T) {
	svc := NewService(newMemoryAssetRepo())

	_, err := svc.CreateInstance(context.Background(), "portfolio", "First")
	require.NoError(t, err)
	_, err = svc.CreateInstance(context.Background(), "portfolio", "Second")
	require.NoError(t, err)

	instances, err := svc.ListInstances(context.Background(), "portfolio")
	require.NoError(t, err)
	require.Len(t, instances, 2)

	_, err = svc.ListInstances(context.Background(), "warehouse")
	require.ErrorIs(t, err, shared.ErrValidation)
}
