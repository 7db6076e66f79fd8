package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

// 2024-03-10 is a Sunday; in Rome it is 13:00.
var streakNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return streakNow }

func newStreakService(h *MockHabitRepo, e *MockHabitEntryRepo, u *MockUserRepo) *services.StreakService {
	return services.NewStreakService(h, e, u, zerolog.Nop(), services.WithClock(fixedClock))
}

func onDay(habitID, date string, value int) *domain.HabitEntry {
	return &domain.HabitEntry{HabitID: habitID, LocalDate: date, Value: value}
}

func TestStreakService_RecalculateHabit(t *testing.T) {
	ctx := context.Background()
	uid := "user-streak"
	rome := &domain.User{ID: uid, Timezone: "Europe/Rome", GraceHour: 3}

	t.Run("Success: Stores changed values", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		habitRepo.On("GetByID", ctx, "h1").Return(&domain.Habit{ID: "h1", UserID: uid, Cadence: streak.CadenceDaily, TargetValue: 1}, nil)
		userRepo.On("GetByID", ctx, uid).Return(rome, nil)
		entryRepo.On("ListByHabitID", ctx, "h1").Return([]*domain.HabitEntry{
			onDay("h1", "2024-03-08", 1),
			onDay("h1", "2024-03-09", 1),
			onDay("h1", "2024-03-10", 1),
			onDay("h1", "2024-03-01", 1),
		}, nil)
		habitRepo.On("UpdateStreaks", ctx, "h1", 3, 3).Return(nil)

		res, err := svc.RecalculateHabit(ctx, "h1")

		require.NoError(t, err)
		assert.Equal(t, streak.Result{Current: 3, Longest: 3}, res)
		habitRepo.AssertExpectations(t)
	})

	t.Run("Skip: Unchanged values are not written", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		habitRepo.On("GetByID", ctx, "h1").Return(&domain.Habit{ID: "h1", UserID: uid, Cadence: streak.CadenceDaily, TargetValue: 1, CurrentStreak: 1, LongestStreak: 1}, nil)
		userRepo.On("GetByID", ctx, uid).Return(rome, nil)
		entryRepo.On("ListByHabitID", ctx, "h1").Return([]*domain.HabitEntry{onDay("h1", "2024-03-09", 1)}, nil)

		res, err := svc.RecalculateHabit(ctx, "h1")

		require.NoError(t, err)
		assert.Equal(t, streak.Result{Current: 1, Longest: 1}, res)
		habitRepo.AssertNotCalled(t, "UpdateStreaks", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Profile: Missing user falls back to the default profile", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		habitRepo.On("GetByID", ctx, "h1").Return(&domain.Habit{ID: "h1", UserID: uid, Cadence: streak.CadenceDaily, TargetValue: 1}, nil)
		userRepo.On("GetByID", ctx, uid).Return(nil, domain.ErrUserNotFound)
		entryRepo.On("ListByHabitID", ctx, "h1").Return([]*domain.HabitEntry{
			{HabitID: "h1", Value: 1, CompletionDate: streakNow.Add(-time.Hour)},
		}, nil)
		habitRepo.On("UpdateStreaks", ctx, "h1", 1, 1).Return(nil)

		_, err := svc.RecalculateHabit(ctx, "h1")

		require.NoError(t, err)
		habitRepo.AssertExpectations(t)
	})

	t.Run("Deleted entries are ignored", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		gone := onDay("h1", "2024-03-10", 1)
		gone.DeletedAt = &streakNow

		habitRepo.On("GetByID", ctx, "h1").Return(&domain.Habit{ID: "h1", UserID: uid, Cadence: streak.CadenceDaily, TargetValue: 1, CurrentStreak: 2, LongestStreak: 2}, nil)
		userRepo.On("GetByID", ctx, uid).Return(rome, nil)
		entryRepo.On("ListByHabitID", ctx, "h1").Return([]*domain.HabitEntry{gone, onDay("h1", "2024-03-09", 1)}, nil)
		habitRepo.On("UpdateStreaks", ctx, "h1", 1, 1).Return(nil)

		res, err := svc.RecalculateHabit(ctx, "h1")

		require.NoError(t, err)
		assert.Equal(t, streak.Result{Current: 1, Longest: 1}, res)
	})

	t.Run("Fail: Habit lookup error propagates", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		habitRepo.On("GetByID", ctx, "h1").Return(nil, domain.ErrHabitNotFound)

		_, err := svc.RecalculateHabit(ctx, "h1")

		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
		entryRepo.AssertNotCalled(t, "ListByHabitID", mock.Anything, mock.Anything)
	})

	t.Run("Fail: Store error is wrapped", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		dbErr := errors.New("deadlock detected")
		habitRepo.On("GetByID", ctx, "h1").Return(&domain.Habit{ID: "h1", UserID: uid, Cadence: streak.CadenceDaily, TargetValue: 1}, nil)
		userRepo.On("GetByID", ctx, uid).Return(rome, nil)
		entryRepo.On("ListByHabitID", ctx, "h1").Return([]*domain.HabitEntry{onDay("h1", "2024-03-10", 1)}, nil)
		habitRepo.On("UpdateStreaks", ctx, "h1", 1, 1).Return(dbErr)

		_, err := svc.RecalculateHabit(ctx, "h1")

		assert.ErrorIs(t, err, dbErr)
	})
}

func TestStreakService_HabitStreak(t *testing.T) {
	ctx := context.Background()
	uid := "user-streak"

	t.Run("Success: Weekly habit with period progress", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		habitRepo.On("GetByID", ctx, "hw").Return(&domain.Habit{ID: "hw", UserID: uid, Title: "Long run", Cadence: streak.CadenceWeekly, TargetValue: 2}, nil)
		userRepo.On("GetByID", ctx, uid).Return(&domain.User{ID: uid, Timezone: "UTC", GraceHour: 3}, nil)
		entryRepo.On("ListByHabitID", ctx, "hw").Return([]*domain.HabitEntry{
			onDay("hw", "2024-02-26", 1),
			onDay("hw", "2024-03-04", 1),
			onDay("hw", "2024-03-06", 2),
			onDay("hw", "2024-03-10", -1),
		}, nil)

		view, err := svc.HabitStreak(ctx, uid, "hw")

		require.NoError(t, err)
		assert.Equal(t, "2024-W10", view.PeriodKey)
		assert.Equal(t, 2, view.PeriodCount)
		assert.Equal(t, 2, view.Current)
		assert.Equal(t, 2, view.Longest)
		assert.Equal(t, streak.CadenceWeekly, view.Cadence)
	})

	t.Run("Custom cadence reports daily progress but no streak", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		habitRepo.On("GetByID", ctx, "hc").Return(&domain.Habit{ID: "hc", UserID: uid, Cadence: streak.CadenceCustom, TargetValue: 1}, nil)
		userRepo.On("GetByID", ctx, uid).Return(&domain.User{ID: uid, Timezone: "UTC", GraceHour: 3}, nil)
		entryRepo.On("ListByHabitID", ctx, "hc").Return([]*domain.HabitEntry{onDay("hc", "2024-03-10", 3)}, nil)

		view, err := svc.HabitStreak(ctx, uid, "hc")

		require.NoError(t, err)
		assert.Equal(t, "2024-03-10", view.PeriodKey)
		assert.Equal(t, 3, view.PeriodCount)
		assert.Zero(t, view.Current)
		assert.Zero(t, view.Longest)
	})

	t.Run("Security: Other user's habit is not found", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		habitRepo.On("GetByID", ctx, "h1").Return(&domain.Habit{ID: "h1", UserID: "someone-else"}, nil)

		view, err := svc.HabitStreak(ctx, uid, "h1")

		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
		assert.Nil(t, view)
		entryRepo.AssertNotCalled(t, "ListByHabitID", mock.Anything, mock.Anything)
	})
}

func TestStreakService_Dashboard(t *testing.T) {
	ctx := context.Background()
	uid := "user-dash"
	archivedAt := streakNow.AddDate(0, 0, -1)

	habits := []*domain.Habit{
		{ID: "read", UserID: uid, Title: "Read", Cadence: streak.CadenceDaily, TargetValue: 1},
		{ID: "gym", UserID: uid, Title: "Gym", Cadence: streak.CadenceDaily, TargetValue: 1},
		{ID: "old", UserID: uid, Title: "Old", Cadence: streak.CadenceDaily, TargetValue: 1, ArchivedAt: &archivedAt},
	}
	entries := []*domain.HabitEntry{
		onDay("read", "2024-03-07", 1),
		onDay("gym", "2024-03-08", 1),
		onDay("read", "2024-03-09", 1),
		onDay("old", "2024-03-10", 1),
	}

	habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
	svc := newStreakService(habitRepo, entryRepo, userRepo)

	userRepo.On("GetByID", ctx, uid).Return(&domain.User{ID: uid, Timezone: "Europe/Rome", GraceHour: 3}, nil)
	habitRepo.On("ListByUserID", ctx, uid).Return(habits, nil)
	entryRepo.On("ListByUserID", ctx, uid).Return(entries, nil)

	t.Run("Account streak is the union of live habits", func(t *testing.T) {
		board, err := svc.Dashboard(ctx, uid)

		require.NoError(t, err)
		assert.Equal(t, "2024-03-10", board.LocalDate)
		assert.Equal(t, streak.Result{Current: 3, Longest: 3}, board.Account)
		assert.Equal(t, 0, board.TodayCount, "Archived habits must not count for today")
		assert.True(t, board.AtRisk)

		require.Len(t, board.Habits, 2)
		byID := map[string]services.HabitStreak{}
		for _, h := range board.Habits {
			byID[h.HabitID] = h
		}
		assert.Equal(t, 1, byID["read"].Current)
		assert.Equal(t, 1, byID["read"].Longest)
		assert.Equal(t, 0, byID["gym"].Current)
		assert.Equal(t, 1, byID["gym"].Longest)
	})

	t.Run("AccountStatus matches the dashboard", func(t *testing.T) {
		status, err := svc.AccountStatus(ctx, uid)

		require.NoError(t, err)
		assert.Equal(t, streak.Result{Current: 3, Longest: 3}, status.Account)
		assert.True(t, status.AtRisk)
		assert.Equal(t, "Europe/Rome", status.Timezone)
	})
}

func TestStreakService_AccountStatus(t *testing.T) {
	ctx := context.Background()
	uid := "user-acct"

	t.Run("Not at risk once today has activity", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		userRepo.On("GetByID", ctx, uid).Return(&domain.User{ID: uid, Timezone: "UTC", GraceHour: 3}, nil)
		habitRepo.On("ListByUserID", ctx, uid).Return([]*domain.Habit{{ID: "h1", UserID: uid, Cadence: streak.CadenceWeekly, TargetValue: 1}}, nil)
		entryRepo.On("ListByUserID", ctx, uid).Return([]*domain.HabitEntry{
			onDay("h1", "2024-03-09", 1),
			onDay("h1", "2024-03-10", 2),
		}, nil)

		status, err := svc.AccountStatus(ctx, uid)

		require.NoError(t, err)
		assert.Equal(t, streak.Result{Current: 2, Longest: 2}, status.Account, "Account streaks are always daily")
		assert.Equal(t, 2, status.TodayCount)
		assert.False(t, status.AtRisk)
	})

	t.Run("Not at risk without a streak", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		userRepo.On("GetByID", ctx, uid).Return(nil, domain.ErrUserNotFound)
		habitRepo.On("ListByUserID", ctx, uid).Return([]*domain.Habit{}, nil)
		entryRepo.On("ListByUserID", ctx, uid).Return([]*domain.HabitEntry{}, nil)

		status, err := svc.AccountStatus(ctx, uid)

		require.NoError(t, err)
		assert.Equal(t, streak.Result{}, status.Account)
		assert.False(t, status.AtRisk)
		assert.Equal(t, domain.DefaultTimezone, status.Timezone)
	})

	t.Run("Fail: Entry listing error is wrapped", func(t *testing.T) {
		habitRepo, entryRepo, userRepo := new(MockHabitRepo), new(MockHabitEntryRepo), new(MockUserRepo)
		svc := newStreakService(habitRepo, entryRepo, userRepo)

		dbErr := errors.New("statement timeout")
		userRepo.On("GetByID", ctx, uid).Return(nil, domain.ErrUserNotFound)
		habitRepo.On("ListByUserID", ctx, uid).Return([]*domain.Habit{}, nil)
		entryRepo.On("ListByUserID", ctx, uid).Return(nil, dbErr)

		status, err := svc.AccountStatus(ctx, uid)

		assert.ErrorIs(t, err, dbErr)
		assert.Nil(t, status)
	})
}
