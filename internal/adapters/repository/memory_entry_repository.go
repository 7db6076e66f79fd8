package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
)

var _ domain.HabitEntryRepository = (*InMemoryEntryRepository)(nil)

type InMemoryEntryRepository struct {
	store map[string]*domain.HabitEntry

	mu sync.RWMutex
}

func NewInMemoryEntryRepository() *InMemoryEntryRepository {
	return &InMemoryEntryRepository{
		store: make(map[string]*domain.HabitEntry),
	}
}

func cloneEntry(e *domain.HabitEntry) *domain.HabitEntry {
	c := *e
	return &c
}

func (r *InMemoryEntryRepository) Create(ctx context.Context, entry *domain.HabitEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if _, ok := r.store[entry.ID]; ok {
		return domain.ErrEntryConflict
	}

	r.store[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *InMemoryEntryRepository) GetByID(ctx context.Context, id string) (*domain.HabitEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.store[id]
	if !ok || e.DeletedAt != nil {
		return nil, domain.ErrEntryNotFound
	}
	return cloneEntry(e), nil
}

// Update expects entry.Version to be one past the stored version.
func (r *InMemoryEntryRepository) Update(ctx context.Context, entry *domain.HabitEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[entry.ID]
	if !ok || existing.DeletedAt != nil {
		return domain.ErrEntryNotFound
	}
	if existing.Version != entry.Version-1 {
		return domain.ErrEntryConflict
	}

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}
	r.store[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *InMemoryEntryRepository) Delete(ctx context.Context, id string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[id]
	if !ok || existing.DeletedAt != nil || existing.UserID != userID {
		return domain.ErrEntryNotFound
	}

	now := time.Now().UTC()
	existing.DeletedAt = &now
	existing.UpdatedAt = now
	existing.Version++
	return nil
}

func (r *InMemoryEntryRepository) collect(match func(*domain.HabitEntry) bool, less func(a, b *domain.HabitEntry) bool) []*domain.HabitEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.HabitEntry{}
	for _, e := range r.store {
		if match(e) {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func oldestFirst(a, b *domain.HabitEntry) bool { return a.CompletionDate.Before(b.CompletionDate) }

func newestFirst(a, b *domain.HabitEntry) bool { return a.CompletionDate.After(b.CompletionDate) }

func within(t, from, to time.Time) bool { return !t.Before(from) && !t.After(to) }

func (r *InMemoryEntryRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.HabitEntry, error) {
	return r.collect(func(e *domain.HabitEntry) bool {
		return e.HabitID == habitID && e.DeletedAt == nil
	}, oldestFirst), nil
}

func (r *InMemoryEntryRepository) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	return r.collect(func(e *domain.HabitEntry) bool {
		return e.HabitID == habitID && e.DeletedAt == nil && within(e.CompletionDate, from, to)
	}, newestFirst), nil
}

func (r *InMemoryEntryRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.HabitEntry, error) {
	return r.collect(func(e *domain.HabitEntry) bool {
		return e.UserID == userID && e.DeletedAt == nil
	}, oldestFirst), nil
}

func (r *InMemoryEntryRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	return r.collect(func(e *domain.HabitEntry) bool {
		return e.UserID == userID && e.DeletedAt == nil && within(e.CompletionDate, from, to)
	}, oldestFirst), nil
}

func (r *InMemoryEntryRepository) ListByUserIDAndLocalDateRange(ctx context.Context, userID string, first, last string) ([]*domain.HabitEntry, error) {
	return r.collect(func(e *domain.HabitEntry) bool {
		return e.UserID == userID && e.DeletedAt == nil &&
			e.LocalDate != "" && e.LocalDate >= first && e.LocalDate <= last
	}, oldestFirst), nil
}

func (r *InMemoryEntryRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	return r.collect(func(e *domain.HabitEntry) bool {
		return e.UserID == userID && e.UpdatedAt.After(since)
	}, func(a, b *domain.HabitEntry) bool { return a.UpdatedAt.Before(b.UpdatedAt) }), nil
}
