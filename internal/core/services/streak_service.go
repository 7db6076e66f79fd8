package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

type HabitStreak struct {
	HabitID     string         `json:"habit_id"`
	Title       string         `json:"title"`
	Cadence     streak.Cadence `json:"cadence"`
	Target      int            `json:"target"`
	PeriodKey   string         `json:"period_key"`
	PeriodCount int            `json:"period_count"`
	Current     int            `json:"current"`
	Longest     int            `json:"longest"`
}

type AccountStatus struct {
	UserID     string        `json:"user_id"`
	Timezone   string        `json:"timezone"`
	LocalDate  string        `json:"local_date"`
	Account    streak.Result `json:"account"`
	TodayCount int           `json:"today_count"`
	AtRisk     bool          `json:"at_risk"`
}

type Dashboard struct {
	AccountStatus
	Habits []HabitStreak `json:"habits"`
}

type StreakServiceOption func(*StreakService)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) StreakServiceOption {
	return func(s *StreakService) {
		s.now = now
	}
}

// WithDefaultProfile sets the timezone and grace hour used for users
// whose profile cannot be found.
func WithDefaultProfile(timezone string, graceHour int) StreakServiceOption {
	return func(s *StreakService) {
		s.defaultTimezone = timezone
		s.defaultGraceHour = graceHour
	}
}

type StreakService struct {
	habitRepo domain.HabitRepository
	entryRepo domain.HabitEntryRepository
	userRepo  domain.UserRepository
	log       zerolog.Logger

	now              func() time.Time
	defaultTimezone  string
	defaultGraceHour int
}

func NewStreakService(habitRepo domain.HabitRepository, entryRepo domain.HabitEntryRepository, userRepo domain.UserRepository, log zerolog.Logger, opts ...StreakServiceOption) *StreakService {
	s := &StreakService{
		habitRepo:        habitRepo,
		entryRepo:        entryRepo,
		userRepo:         userRepo,
		log:              log.With().Str("component", "streak_service").Logger(),
		now:              time.Now,
		defaultTimezone:  domain.DefaultTimezone,
		defaultGraceHour: streak.DefaultGraceHour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type profile struct {
	timezone  string
	graceHour int
}

func (s *StreakService) profile(ctx context.Context, userID string) (profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return profile{timezone: s.defaultTimezone, graceHour: s.defaultGraceHour}, nil
	}
	if err != nil {
		return profile{}, fmt.Errorf("streak service: load profile: %w", err)
	}
	if user.Timezone == "" {
		return profile{timezone: s.defaultTimezone, graceHour: user.GraceHour}, nil
	}
	return profile{timezone: user.Timezone, graceHour: user.GraceHour}, nil
}

// RecalculateHabit recomputes the stored streak values of a habit from its
// full history. The habit row is written only when the values changed.
func (s *StreakService) RecalculateHabit(ctx context.Context, habitID string) (streak.Result, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return streak.Result{}, err
	}

	prof, err := s.profile(ctx, habit.UserID)
	if err != nil {
		return streak.Result{}, err
	}

	rows, err := s.entryRepo.ListByHabitID(ctx, habitID)
	if err != nil {
		return streak.Result{}, fmt.Errorf("streak service: list entries: %w", err)
	}

	res := streak.Compute(domain.StreakEntries(rows), habit.StreakParams(prof.timezone, prof.graceHour, s.now()))

	if habit.CurrentStreak == res.Current && habit.LongestStreak == res.Longest {
		return res, nil
	}

	if err := s.habitRepo.UpdateStreaks(ctx, habitID, res.Current, res.Longest); err != nil {
		return streak.Result{}, fmt.Errorf("streak service: store streaks: %w", err)
	}

	s.log.Debug().
		Str("habit_id", habitID).
		Str("user_id", habit.UserID).
		Int("current", res.Current).
		Int("longest", res.Longest).
		Msg("streak updated")

	return res, nil
}

// HabitStreak returns the live streak of one habit owned by userID.
func (s *StreakService) HabitStreak(ctx context.Context, userID, habitID string) (*HabitStreak, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}

	prof, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.entryRepo.ListByHabitID(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("streak service: list entries: %w", err)
	}

	view := s.habitView(habit, domain.StreakEntries(rows), prof, s.now())
	return &view, nil
}

func (s *StreakService) habitView(h *domain.Habit, entries []streak.Entry, prof profile, now time.Time) HabitStreak {
	p := h.StreakParams(prof.timezone, prof.graceHour, now)
	res := streak.Compute(entries, p)

	keyCadence := h.Cadence
	if !keyCadence.Tracked() {
		keyCadence = streak.CadenceDaily
	}
	key, _ := streak.PeriodKey(keyCadence, streak.ResolveLocalDate(prof.timezone, prof.graceHour, now))

	return HabitStreak{
		HabitID:     h.ID,
		Title:       h.Title,
		Cadence:     h.Cadence,
		Target:      h.TargetValue,
		PeriodKey:   key,
		PeriodCount: streak.CurrentPeriodCount(entries, p),
		Current:     res.Current,
		Longest:     res.Longest,
	}
}

// Dashboard computes every habit's streak and the account streak in one
// pass over the user's entries. Archived habits are left out.
func (s *StreakService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	habits, byHabit, prof, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	board := &Dashboard{
		AccountStatus: s.accountStatus(userID, habits, byHabit, prof, now),
		Habits:        make([]HabitStreak, 0, len(habits)),
	}
	for _, h := range habits {
		board.Habits = append(board.Habits, s.habitView(h, byHabit[h.ID], prof, now))
	}

	return board, nil
}

// AccountStatus reports the account streak and whether it is about to
// break: a live streak with nothing recorded yet today.
func (s *StreakService) AccountStatus(ctx context.Context, userID string) (*AccountStatus, error) {
	habits, byHabit, prof, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := s.accountStatus(userID, habits, byHabit, prof, s.now())
	return &status, nil
}

func (s *StreakService) load(ctx context.Context, userID string) ([]*domain.Habit, map[string][]streak.Entry, profile, error) {
	prof, err := s.profile(ctx, userID)
	if err != nil {
		return nil, nil, profile{}, err
	}

	all, err := s.habitRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, nil, profile{}, fmt.Errorf("streak service: list habits: %w", err)
	}

	rows, err := s.entryRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, nil, profile{}, fmt.Errorf("streak service: list entries: %w", err)
	}

	grouped := make(map[string][]*domain.HabitEntry)
	for _, row := range rows {
		grouped[row.HabitID] = append(grouped[row.HabitID], row)
	}

	habits := make([]*domain.Habit, 0, len(all))
	byHabit := make(map[string][]streak.Entry, len(all))
	for _, h := range all {
		if h.ArchivedAt != nil || h.DeletedAt != nil {
			continue
		}
		habits = append(habits, h)
		byHabit[h.ID] = domain.StreakEntries(grouped[h.ID])
	}

	return habits, byHabit, prof, nil
}

func (s *StreakService) accountStatus(userID string, habits []*domain.Habit, byHabit map[string][]streak.Entry, prof profile, now time.Time) AccountStatus {
	all := make([][]streak.Entry, 0, len(habits))
	today := 0
	daily := streak.DefaultParams(streak.CadenceDaily, prof.timezone, now)
	daily.GraceHour = prof.graceHour

	for _, h := range habits {
		entries := byHabit[h.ID]
		all = append(all, entries)
		today += streak.CurrentPeriodCount(entries, daily)
	}

	account := streak.ComputeAccount(all, streak.AccountParams{
		Timezone:  prof.timezone,
		GraceHour: prof.graceHour,
		Now:       now,
	})

	return AccountStatus{
		UserID:     userID,
		Timezone:   prof.timezone,
		LocalDate:  streak.ResolveLocalDate(prof.timezone, prof.graceHour, now),
		Account:    account,
		TodayCount: today,
		AtRisk:     account.Current > 0 && today <= 0,
	}
}
