package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
)

// StreakEnqueuer schedules a streak recalculation for a habit. Enqueue
// must not block the request path.
type StreakEnqueuer interface {
	Enqueue(habitID string)
}

type EntryServiceOption func(*EntryService)

// WithEntryClock replaces the wall clock used to stamp edits and dateless
// check-ins.
func WithEntryClock(now func() time.Time) EntryServiceOption {
	return func(s *EntryService) {
		s.now = now
	}
}

// EntryService records check-ins. Every write that can move a streak
// schedules a recalculation of the entry's habit.
type EntryService struct {
	entries domain.HabitEntryRepository
	habits  domain.HabitRepository
	streaks StreakEnqueuer
	now     func() time.Time
}

func NewEntryService(entries domain.HabitEntryRepository, habits domain.HabitRepository, streaks StreakEnqueuer, opts ...EntryServiceOption) *EntryService {
	s := &EntryService{
		entries: entries,
		habits:  habits,
		streaks: streaks,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEntryInput needs CompletionDate, LocalDate or both.
type CreateEntryInput struct {
	HabitID        string
	UserID         string
	CompletionDate time.Time
	LocalDate      string
	Value          int
	Notes          string
}

// UpdateEntryInput edits the count and notes of a check-in. A zero Version
// skips the stale-read check.
type UpdateEntryInput struct {
	ID      string
	UserID  string
	Value   int
	Notes   string
	Version int
}

func (s *EntryService) Create(ctx context.Context, input CreateEntryInput) (*domain.HabitEntry, error) {
	entry := domain.NewHabitEntry(input.HabitID, input.UserID, input.CompletionDate, input.Value)
	entry.LocalDate = input.LocalDate
	entry.Notes = input.Notes

	stamp := s.now().UTC()
	entry.CreatedAt, entry.UpdatedAt = stamp, stamp
	// Dated check-ins still get an instant so delta sync and range reads see them.
	if entry.CompletionDate.IsZero() && entry.LocalDate != "" {
		entry.CompletionDate = stamp
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.ownedHabit(ctx, entry.HabitID, entry.UserID); err != nil {
		return nil, err
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}
	s.recalculate(ctx, entry.HabitID)
	return entry, nil
}

func (s *EntryService) Update(ctx context.Context, input UpdateEntryInput) (*domain.HabitEntry, error) {
	entry, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}
	if input.Version > 0 && entry.Version != input.Version {
		return nil, domain.ErrEntryConflict
	}

	entry.Value = input.Value
	entry.Notes = input.Notes
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	entry.Version++
	entry.UpdatedAt = s.now().UTC()

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}
	s.recalculate(ctx, entry.HabitID)
	return entry, nil
}

// GetByID returns the entry only to its owner.
func (s *EntryService) GetByID(ctx context.Context, id string, userID string) (*domain.HabitEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return entry, nil
}

// ListByHabitID returns the habit's live entries with from <= completion_date <= to.
func (s *EntryService) ListByHabitID(ctx context.Context, habitID string, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range ends before it starts", domain.ErrInvalidEntry)
	}
	if _, err := s.ownedHabit(ctx, habitID, userID); err != nil {
		return nil, err
	}
	return s.entries.ListByHabitIDWithRange(ctx, habitID, from, to)
}

// Delete soft-deletes the entry so the removal reaches other devices on
// their next sync.
func (s *EntryService) Delete(ctx context.Context, id string, userID string) error {
	entry, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.recalculate(ctx, entry.HabitID)
	return nil
}

// GetDelta returns every entry of the user touched after since, deletions included.
func (s *EntryService) GetDelta(ctx context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	return s.entries.GetChanges(ctx, userID, since)
}

func (s *EntryService) ownedHabit(ctx context.Context, habitID, userID string) (*domain.Habit, error) {
	habit, err := s.habits.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return habit, nil
}

func (s *EntryService) recalculate(ctx context.Context, habitID string) {
	zerolog.Ctx(ctx).Debug().Str("habit_id", habitID).Msg("streak recalculation scheduled")
	s.streaks.Enqueue(habitID)
}
