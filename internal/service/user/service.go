package user

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
)

// Service is a read-through cache over the identity store. Booking notes,
// greetings and email recipients are all resolved through it.
type Service struct {
	repo  repository.UserRepository
	cache *cache.Cache
}

func NewService(repo repository.UserRepository, ttl, cleanup time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(ttl, cleanup),
	}
}

func cacheKey(id string) string { return "user:" + id }

func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	if cached, ok := s.cache.Get(cacheKey(id)); ok {
		return cached.(*model.User), nil
	}

	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}

	s.cache.SetDefault(cacheKey(id), user)
	return user, nil
}

// Invalidate drops a cached entry, e.g. after the identity service reports a profile change.
func (s *Service) Invalidate(id string) {
	s.cache.Delete(cacheKey(id))
}
