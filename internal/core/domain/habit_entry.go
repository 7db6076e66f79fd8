package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

var (
	ErrInvalidEntry = errors.New("invalid habit entry data")
)

type HabitEntry struct {
	ID      string `json:"id" db:"id"`
	HabitID string `json:"habit_id" db:"habit_id"`
	UserID  string `json:"user_id" db:"user_id"`

	// CompletionDate is the UTC instant of the check-in. LocalDate, when
	// set, is a calendar date the client already resolved and takes
	// precedence for streak purposes.
	CompletionDate time.Time `json:"completion_date" db:"completion_date"`
	LocalDate      string    `json:"local_date,omitempty" db:"local_date"`
	Value          int       `json:"value" db:"value"`
	Notes          string    `json:"notes" db:"notes"`

	Version   int        `json:"version" db:"version"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func NewHabitEntry(habitID, userID string, date time.Time, value int) *HabitEntry {
	now := time.Now().UTC()

	return &HabitEntry{
		HabitID:        habitID,
		UserID:         userID,
		CompletionDate: date.UTC(),
		Value:          value,

		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *HabitEntry) Validate() error {
	if strings.TrimSpace(e.HabitID) == "" {
		return fmt.Errorf("%w: habit_id is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidEntry)
	}
	if e.Value < 0 {
		return fmt.Errorf("%w: value cannot be negative", ErrInvalidEntry)
	}
	if e.LocalDate != "" {
		if _, err := streak.ParseLocalDate(e.LocalDate); err != nil {
			return fmt.Errorf("%w: local_date must be YYYY-MM-DD", ErrInvalidEntry)
		}
		return nil
	}
	if e.CompletionDate.IsZero() {
		return fmt.Errorf("%w: completion_date is required", ErrInvalidEntry)
	}
	return nil
}

// StreakEntry converts the row into the streak engine's entry. Rows with
// neither a local date nor an instant report false.
func (e *HabitEntry) StreakEntry() (streak.Entry, bool) {
	switch {
	case e.LocalDate != "":
		return streak.LocalDateEntry{Date: e.LocalDate, N: e.Value}, true
	case !e.CompletionDate.IsZero():
		return streak.InstantEntry{At: e.CompletionDate, N: e.Value}, true
	default:
		return nil, false
	}
}

// StreakEntries converts rows, skipping soft-deleted and dateless ones.
func StreakEntries(rows []*HabitEntry) []streak.Entry {
	entries := make([]streak.Entry, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.DeletedAt != nil {
			continue
		}
		if e, ok := row.StreakEntry(); ok {
			entries = append(entries, e)
		}
	}
	return entries
}
