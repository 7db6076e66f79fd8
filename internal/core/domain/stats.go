package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

// WeeklyStats reports daily progress over local calendar dates. Timezone
// and GraceHour are the profile values the dates were resolved with.
type WeeklyStats struct {
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	Timezone    string      `json:"timezone"`
	GraceHour   int         `json:"grace_hour"`
	TotalHabits int         `json:"total_habits"`
	OverallRate float64     `json:"overall_completion_rate"`
	HabitStats  []HabitStat `json:"habits"`
}

type HabitStat struct {
	HabitID        string         `json:"habit_id"`
	HabitTitle     string         `json:"habit_title"`
	Color          string         `json:"color"`
	Icon           string         `json:"icon"`
	Cadence        streak.Cadence `json:"cadence"`
	TargetValue    int            `json:"target_value"`
	Unit           string         `json:"unit"`
	TotalValue     int            `json:"total_value"`
	CompletionRate float64        `json:"completion_rate"`
	DaysCompleted  int            `json:"days_completed"`
	DailyProgress  []int          `json:"daily_progress"`
	// Stored streak values, as last written by the recalculation worker.
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

var ErrInvalidStatsRange = errors.New("invalid stats date range")

// MaxStatsDays is one leap year of local dates.
const MaxStatsDays = 366

// StatsInput bounds the report by local calendar dates, inclusive. A zero
// EndDate means the user's local today; a zero StartDate means six days
// before EndDate.
type StatsInput struct {
	UserID    string
	StartDate time.Time
	EndDate   time.Time
}

// Days returns the number of local dates the report covers.
func (in StatsInput) Days() int {
	start := time.Date(in.StartDate.Year(), in.StartDate.Month(), in.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(in.EndDate.Year(), in.EndDate.Month(), in.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Validate checks a fully defaulted range.
func (in StatsInput) Validate() error {
	if in.StartDate.After(in.EndDate) {
		return fmt.Errorf("%w: start_date is after end_date", ErrInvalidStatsRange)
	}
	if in.Days() > MaxStatsDays {
		return fmt.Errorf("%w: at most %d days", ErrInvalidStatsRange, MaxStatsDays)
	}
	return nil
}
