package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

type StatsService struct {
	habitRepo domain.HabitRepository
	entryRepo domain.HabitEntryRepository
	userRepo  domain.UserRepository
	now       func() time.Time
}

type StatsServiceOption func(*StatsService)

// WithStatsClock replaces the wall clock used to find the user's today.
func WithStatsClock(now func() time.Time) StatsServiceOption {
	return func(s *StatsService) {
		s.now = now
	}
}

func NewStatsService(habitRepo domain.HabitRepository, entryRepo domain.HabitEntryRepository, userRepo domain.UserRepository, opts ...StatsServiceOption) *StatsService {
	s := &StatsService{
		habitRepo: habitRepo,
		entryRepo: entryRepo,
		userRepo:  userRepo,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetWeeklyStats buckets entries on the user's local calendar, the same
// way streaks are computed. Missing bounds default to the seven local days
// ending today.
func (s *StatsService) GetWeeklyStats(ctx context.Context, input domain.StatsInput) (*domain.WeeklyStats, error) {
	timezone, graceHour := domain.DefaultTimezone, streak.DefaultGraceHour
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	switch {
	case err == nil:
		timezone, graceHour = user.Timezone, user.GraceHour
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("stats service: load profile: %w", err)
	}

	if input.EndDate.IsZero() {
		today, _ := streak.ParseLocalDate(streak.ResolveLocalDate(timezone, graceHour, s.now()))
		input.EndDate = today
	}
	if input.StartDate.IsZero() {
		input.StartDate = calendarDay(input.EndDate).AddDate(0, 0, -6)
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	first := calendarDay(input.StartDate)
	last := calendarDay(input.EndDate)

	habits, err := s.habitRepo.ListByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entriesInRange(ctx, input.UserID, timezone, graceHour, first, last)
	if err != nil {
		return nil, err
	}

	entriesMap := make(map[string]map[string]int)
	for _, e := range entries {
		se, ok := e.StreakEntry()
		if !ok {
			continue
		}
		dateKey, ok := streak.LocalDate(se, timezone, graceHour)
		if !ok {
			continue
		}
		if _, exists := entriesMap[e.HabitID]; !exists {
			entriesMap[e.HabitID] = make(map[string]int)
		}
		entriesMap[e.HabitID][dateKey] += e.Value
	}

	stats := &domain.WeeklyStats{
		StartDate:   first.Format(streak.DateFormat),
		EndDate:     last.Format(streak.DateFormat),
		Timezone:    timezone,
		GraceHour:   graceHour,
		TotalHabits: len(habits),
		HabitStats:  make([]domain.HabitStat, 0, len(habits)),
	}

	totalDaysPossible := 0
	totalDaysCompleted := 0

	for _, h := range habits {
		hStat := domain.HabitStat{
			HabitID:       h.ID,
			HabitTitle:    h.Title,
			Color:         h.Color,
			Icon:          h.Icon,
			Cadence:       h.Cadence,
			TargetValue:   h.TargetValue,
			Unit:          h.Unit,
			DailyProgress: make([]int, 0, input.Days()),
			CurrentStreak: h.CurrentStreak,
			LongestStreak: h.LongestStreak,
		}

		daysInPeriod := 0
		daysAchieved := 0

		for currentDate := first; !currentDate.After(last); currentDate = currentDate.AddDate(0, 0, 1) {
			val := entriesMap[h.ID][currentDate.Format(streak.DateFormat)]

			hStat.TotalValue += val
			hStat.DailyProgress = append(hStat.DailyProgress, val)

			if h.TargetValue > 0 && val >= h.TargetValue {
				daysAchieved++
				totalDaysCompleted++
			}

			daysInPeriod++
			totalDaysPossible++
		}

		hStat.DaysCompleted = daysAchieved
		if daysInPeriod > 0 {
			hStat.CompletionRate = float64(daysAchieved) / float64(daysInPeriod) * 100
		}

		stats.HabitStats = append(stats.HabitStats, hStat)
	}

	if totalDaysPossible > 0 {
		stats.OverallRate = float64(totalDaysCompleted) / float64(totalDaysPossible) * 100
	}

	return stats, nil
}

// entriesInRange merges the entries whose instant falls inside the local
// days first..last with those filed directly under one of those dates.
func (s *StatsService) entriesInRange(ctx context.Context, userID, timezone string, graceHour int, first, last time.Time) ([]*domain.HabitEntry, error) {
	from, to := streak.InstantBounds(timezone, graceHour, first, last)
	byInstant, err := s.entryRepo.ListByUserIDAndDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("stats service: list entries: %w", err)
	}

	byDate, err := s.entryRepo.ListByUserIDAndLocalDateRange(ctx, userID, first.Format(streak.DateFormat), last.Format(streak.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("stats service: list dated entries: %w", err)
	}

	seen := make(map[string]struct{}, len(byInstant))
	merged := make([]*domain.HabitEntry, 0, len(byInstant)+len(byDate))
	for _, batch := range [][]*domain.HabitEntry{byInstant, byDate} {
		for _, e := range batch {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			merged = append(merged, e)
		}
	}
	return merged, nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
