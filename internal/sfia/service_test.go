package sfia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skillatlas/skillatlas/internal/shared"
)

type memorySkillRepo struct {
	skills map[int64]Skill
	nextID int64
}

func newMemorySkillRepo() *memorySkillRepo {
	return &memorySkillRepo{skills: make(map[int64]Skill)}
}

func (r *memorySkillRepo) ListSkills(ctx context.Context) ([]Skill, error) {
	out := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	return out, nil
}

func (r *memorySkillRepo) GetSkill(ctx context.Context, id int64) (Skill, error) {
	s, ok := r.skills[id]
	if !ok {
		return Skill{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *memorySkillRepo) CreateSkill(ctx context.Context, actorID int64, s Skill) (Skill, error) {
	for _, existing := range r.skills {
		if existing.Code == s.Code {
			return Skill{}, shared.ErrConflict
		}
	}
	r.nextID++
	s.ID = r.nextID
	r.skills[s.ID] = s
	return s, nil
}

func (r *memorySkillRepo) UpdateSkill(ctx context.Context, actorID int64, s Skill) (Skill, error) {
	if _, ok := r.skills[s.ID]; !ok {
		return Skill{}, shared.ErrNotFound
	}
	r.skills[s.ID] = s
	return s, nil
}

func (r *memorySkillRepo) DeleteSkill(ctx context.Context, actorID, id int64) error {
	if _, ok := r.skills[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.skills, id)
	return nil
}

func TestCreateSkillNormalizes(t *testing.T) {
	svc := NewService(newMemorySkillRepo())

	skill, err := svc.CreateSkill(context.Background(), 1, Skill{
		Code:     " prog ",
		Name:     " Programming/software development ",
		Category: "Development and implementation",
		LevelMin: 2,
		LevelMax: 6,
	})
	require.NoError(t, err)
	require.Equal(t, "PROG", skill.Code)
	require.Equal(t, "Programming/software development", skill.Name)
}

func TestCreateSkillLevelRange(t *testing.T) {
	svc := NewService(newMemorySkillRepo())

	cases := []struct {
		name     string
		min, max int
	}{
		{"min below range", 0, 5},
		{"max above range", 1, 8},
		{"inverted", 5, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSkill(context.Background(), 1, Skill{
				Code: "PROG", Name: "Programming", Category: "Dev",
				LevelMin: tc.min, LevelMax: tc.max,
			})
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCreateSkillDuplicateCode(t *testing.T) {
	svc := NewService(newMemorySkillRepo())

	_, err := svc.CreateSkill(context.Background(), 1, Skill{
		Code: "PROG", Name: "Programming", Category: "Dev", LevelMin: 1, LevelMax: 6,
	})
	require.NoError(t, err)
	_, err = svc.CreateSkill(context.Background(), 1, Skill{
		Code: "prog", Name: "Programming again", Category: "Dev", LevelMin: 1, LevelMax: 6,
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}
