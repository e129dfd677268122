package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
)

type countingRepo struct {
	users map[string]*model.User
	calls int
}

func (r *countingRepo) Get(_ context.Context, id string) (*model.User, error) {
	r.calls++
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func TestService_CachesLookups(t *testing.T) {
	email := "kari@example.com"
	repo := &countingRepo{users: map[string]*model.User{"u1": {ID: "u1", Email: &email}}}
	svc := NewService(repo, time.Minute, time.Minute)
	ctx := context.Background()

	u, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "kari@example.com", u.EmailAddress())

	_, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	svc.Invalidate("u1")
	_, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestService_MissIsNotCached(t *testing.T) {
	repo := &countingRepo{users: map[string]*model.User{}}
	svc := NewService(repo, time.Minute, time.Minute)

	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 2, repo.calls)
}
