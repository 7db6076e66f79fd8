package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
)

type HabitService struct {
	repo domain.HabitRepository
}

func NewHabitService(repo domain.HabitRepository) *HabitService {
	return &HabitService{
		repo: repo,
	}
}

type CreateHabitInput struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	Color        string
	Icon         string
	Type         string
	Cadence      string
	ReminderTime string
	Unit         string
	TargetValue  int
	Weekdays     []int
}

// UpdateHabitInput is a partial update: nil fields keep the stored value.
type UpdateHabitInput struct {
	ID           string
	UserID       string
	Title        *string
	Description  *string
	Color        *string
	Icon         *string
	Type         *string
	Cadence      *string
	ReminderTime *string
	Unit         *string
	TargetValue  *int
	Weekdays     []int
	Version      int
}

func mergeString(newVal, oldVal string) string {
	if newVal == "" {
		return oldVal
	}
	return newVal
}

func pick[T any](newVal *T, oldVal T) T {
	if newVal == nil {
		return oldVal
	}
	return *newVal
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	if input.ID != "" {
		existing, err := s.repo.GetByID(ctx, input.ID)
		if err == nil {
			if existing.UserID != input.UserID {
				return nil, domain.ErrHabitNotFound
			}
			return existing, nil
		}
		if !errors.Is(err, domain.ErrHabitNotFound) {
			return nil, err
		}
	}

	habit, err := domain.NewHabit(input.ID, input.Title, input.UserID)
	if err != nil {
		return nil, err
	}

	finalType := mergeString(input.Type, habit.Type)

	if input.TargetValue < 1 {
		input.TargetValue = 1
	}

	err = habit.Update(
		input.Title,
		input.Description,
		input.Color,
		input.Icon,
		finalType,
		input.Cadence,
		input.ReminderTime,
		input.Unit,
		input.TargetValue,
		input.Weekdays,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *HabitService) GetDelta(ctx context.Context, userID string, lastSync time.Time) ([]*domain.Habit, error) {
	return s.repo.GetChanges(ctx, userID, lastSync)
}

// Update applies a partial update. A habit unknown to the server is created
// from the input when a title is present, so offline clients can push
// edits for habits whose creation never reached the server.
func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, input.ID)
	if errors.Is(err, domain.ErrHabitNotFound) && input.Title != nil {
		return s.Create(ctx, CreateHabitInput{
			ID:           input.ID,
			UserID:       input.UserID,
			Title:        *input.Title,
			Description:  pick(input.Description, ""),
			Color:        pick(input.Color, ""),
			Icon:         pick(input.Icon, ""),
			Type:         pick(input.Type, ""),
			Cadence:      pick(input.Cadence, ""),
			ReminderTime: pick(input.ReminderTime, ""),
			Unit:         pick(input.Unit, ""),
			TargetValue:  pick(input.TargetValue, 1),
			Weekdays:     input.Weekdays,
		})
	}
	if err != nil {
		return nil, err
	}

	if habit.UserID != input.UserID {
		return nil, domain.ErrHabitNotFound
	}

	if input.Version > 0 && habit.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrHabitConflict, input.Version, habit.Version)
	}

	reminder := ""
	if habit.ReminderTime != nil {
		reminder = *habit.ReminderTime
	}

	weekdays := habit.Weekdays
	if input.Weekdays != nil {
		weekdays = input.Weekdays
	}

	err = habit.Update(
		pick(input.Title, habit.Title),
		pick(input.Description, habit.Description),
		pick(input.Color, habit.Color),
		pick(input.Icon, habit.Icon),
		pick(input.Type, habit.Type),
		pick(input.Cadence, string(habit.Cadence)),
		pick(input.ReminderTime, reminder),
		pick(input.Unit, habit.Unit),
		pick(input.TargetValue, habit.TargetValue),
		weekdays,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if habit.UserID != userID {
		return domain.ErrHabitNotFound
	}

	return s.repo.Delete(ctx, id)
}
