package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
)

var _ domain.HabitRepository = (*CachedHabitRepository)(nil)

const DefaultHabitListTTL = 30 * time.Minute

// CachedHabitRepository keeps each user's habit list in a cache.Store and
// drops it on every write that touches one of the user's habits.
type CachedHabitRepository struct {
	next  domain.HabitRepository
	cache cache.Store
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedHabitRepository(next domain.HabitRepository, store cache.Store, ttl time.Duration, log zerolog.Logger) *CachedHabitRepository {
	if ttl <= 0 {
		ttl = DefaultHabitListTTL
	}
	return &CachedHabitRepository{
		next:  next,
		cache: store,
		ttl:   ttl,
		log:   log.With().Str("component", "habit_cache").Logger(),
	}
}

func (r *CachedHabitRepository) cacheKey(userID string) string {
	return fmt.Sprintf("habits:%s", userID)
}

func (r *CachedHabitRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.Delete(ctx, r.cacheKey(userID)); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("cache invalidation failed")
	}
}

func (r *CachedHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	key := r.cacheKey(userID)

	val, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var habits []*domain.Habit
		if err := json.Unmarshal(val, &habits); err == nil {
			return habits, nil
		}
		r.log.Warn().Str("user_id", userID).Msg("corrupted cache entry, dropping key")
		r.invalidate(ctx, userID)
	case !errors.Is(err, cache.ErrCacheMiss):
		r.log.Warn().Err(err).Msg("cache read failed")
	}

	habits, err := r.next.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(habits); err == nil {
		if setErr := r.cache.Set(ctx, key, data, r.ttl); setErr != nil {
			r.log.Warn().Err(setErr).Msg("cache write failed")
		}
	}

	return habits, nil
}

func (r *CachedHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	return r.next.GetChanges(ctx, userID, since)
}

func (r *CachedHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Create(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Update(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Delete(ctx context.Context, id string) error {
	habit, err := r.next.GetByID(ctx, id)
	if err == nil && habit != nil {
		defer r.invalidate(ctx, habit.UserID)
	}

	return r.next.Delete(ctx, id)
}

func (r *CachedHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	habit, err := r.next.GetByID(ctx, id)
	if err == nil && habit != nil {
		defer r.invalidate(ctx, habit.UserID)
	}

	return r.next.UpdateStreaks(ctx, id, current, longest)
}
