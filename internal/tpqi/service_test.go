package tpqi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skillatlas/skillatlas/internal/shared"
)

type memoryCareerRepo struct {
	careers map[int64]Career
	nextID  int64
}

func newMemoryCareerRepo() *memoryCareerRepo {
	return &memoryCareerRepo{careers: make(map[int64]Career)}
}

func (r *memoryCareerRepo) ListCareers(ctx context.Context) ([]Career, error) {
	out := make([]Career, 0, len(r.careers))
	for _, c := range r.careers {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryCareerRepo) GetCareer(ctx context.Context, id int64) (Career, error) {
	c, ok := r.careers[id]
	if !ok {
		return Career{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryCareerRepo) CreateCareer(ctx context.Context, actorID int64, c Career) (Career, error) {
	for _, existing := range r.careers {
		if existing.Sector == c.Sector && existing.Name == c.Name {
			return Career{}, shared.ErrConflict
		}
	}
	r.nextID++
	c.ID = r.nextID
	r.careers[c.ID] = c
	return c, nil
}

func (r *memoryCareerRepo) UpdateCareer(ctx context.Context, actorID int64, c Career) (Career, error) {
	if _, ok := r.careers[c.ID]; !ok {
		return Career{}, shared.ErrNotFound
	}
	r.careers[c.ID] = c
	return c, nil
}

func (r *memoryCareerRepo) DeleteCareer(ctx context.Context, actorID, id int64) error {
	if _, ok := r.careers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.careers, id)
	return nil
}

func TestCreateCareerNormalizes(t *testing.T) {
	svc := NewService(newMemoryCareerRepo())

	career, err := svc.CreateCareer(context.Background(), 1, Career{
		Sector: " Information and Communication Technology ",
		Name:   " Software Developer ",
	})
	require.NoError(t, err)
	require.Equal(t, "Information and Communication Technology", career.Sector)
	require.Equal(t, "Software Developer", career.Name)
	require.NotZero(t, career.ID)
}

func TestCreateCareerRequiresSectorAndName(t *testing.T) {
	svc := NewService(newMemoryCareerRepo())

	_, err := svc.CreateCareer(context.Background(), 1, Career{Sector: "ICT"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateCareer(context.Background(), 1, Career{Name: "Software Developer"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateCareerDuplicate(t *testing.T) {
	svc := NewService(newMemoryCareerRepo())

	_, err := svc.CreateCareer(context.Background(), 1, Career{Sector: "ICT", Name: "Software Developer"})
	require.NoError(t, err)
	_, err = svc.CreateCareer(context.Background(), 1, Career{Sector: "ICT", Name: "Software Developer"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateCareerMissing(t *testing.T) {
	svc := NewService(newMemoryCareerRepo())

	_, err := svc.UpdateCareer(context.Background(), 1, Career{ID: 99, Sector: "ICT", Name: "Analyst"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
