package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillatlas/skillatlas/internal/shared"
)

type memoryAuthRepo struct {
	users    map[string]*User
	sessions map[string]time.Time
}

func newMemoryAuthRepo() *memoryAuthRepo {
	return &memoryAuthRepo{
		users:    make(map[string]*User),
		sessions: make(map[string]time.Time),
	}
}

func (r *memoryAuthRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *memoryAuthRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	r.sessions[id] = expiresAt
	return nil
}

func (r *memoryAuthRepo) DeleteSession(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func (r *memoryAuthRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	for id, expiresAt := range r.sessions {
		if expiresAt.Before(before) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

func addUser(t *testing.T, repo *memoryAuthRepo, email, password string, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users[email] = &User{
		ID:           int64(len(repo.users) + 1),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     active,
	}
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryAuthRepo()
	addUser(t, repo, "alice@example.com", "s3cretpass", true)
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMemoryAuthRepo()
	addUser(t, repo, "alice@example.com", "s3cretpass", true)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "alice@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc := NewService(newMemoryAuthRepo())

	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "whatever")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	repo := newMemoryAuthRepo()
	addUser(t, repo, "alice@example.com", "s3cretpass", false)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newMemoryAuthRepo()
	svc := NewService(repo)
	now := time.Now()

	require.NoError(t, svc.RegisterSession(context.Background(), "sess-1", 1, now.Add(-time.Hour), "127.0.0.1", "test"))
	require.NoError(t, svc.RegisterSession(context.Background(), "sess-2", 1, now.Add(time.Hour), "127.0.0.1", "test"))

	deleted, err := repo.DeleteExpiredSessions(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	require.NoError(t, svc.RemoveSession(context.Background(), "sess-2"))
	require.Empty(t, repo.sessions)
}
