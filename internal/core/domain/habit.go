package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

var (
	ErrHabitTitleEmpty    = errors.New("habit title cannot be empty")
	ErrHabitTitleTooLong  = errors.New("habit title is too long (max 100 chars)")
	ErrHabitDescTooLong   = errors.New("habit description is too long (max 500 chars)")
	ErrHabitInvalidUserID = errors.New("invalid user id")
	ErrInvalidColor       = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidWeekdays    = errors.New("invalid weekdays (must be 0-6)")
	ErrInvalidTarget      = errors.New("target cannot be negative")
	ErrInvalidCadence     = errors.New("invalid cadence (must be daily, weekly, or custom)")
	ErrHabitArchived      = errors.New("cannot update an archived habit")
	ErrInvalidHabitType   = errors.New("invalid habit type (must be boolean, numeric, or timer)")
	ErrInvalidReminder    = errors.New("invalid reminder format (must be HH:MM 24h)")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
var reminderRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	HabitTypeBoolean = "boolean"
	HabitTypeNumeric = "numeric"
	HabitTypeTimer   = "timer"
	DefaultIcon      = "default_icon"
	MaxTitleLen      = 100
	MaxDescLen       = 500
)

type Habit struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Color         string         `json:"color"`
	Icon          string         `json:"icon"`
	SortOrder     int            `json:"sort_order"`
	Type          string         `json:"type"`
	ReminderTime  *string        `json:"reminder_time,omitempty"`
	Cadence       streak.Cadence `json:"cadence"`
	Weekdays      []int          `json:"weekdays,omitempty"`
	TargetValue   int            `json:"target_value"`
	Unit          string         `json:"unit"`
	CurrentStreak int            `json:"current_streak"`
	LongestStreak int            `json:"longest_streak"`
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	ArchivedAt    *time.Time     `json:"archived_at,omitempty"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       *time.Time     `json:"end_date,omitempty"`
}

// StreakParams describes how the habit's entries are bucketed for a user
// living in timezone.
func (h *Habit) StreakParams(timezone string, graceHour int, now time.Time) streak.Params {
	return streak.Params{
		Cadence:   h.Cadence,
		Timezone:  timezone,
		GraceHour: graceHour,
		Target:    h.TargetValue,
		Now:       now,
	}
}

func normalizeWeekdays(days []int) []int {
	if len(days) == 0 {
		return nil
	}

	uniqueMap := make(map[int]bool)
	var uniqueDays []int
	for _, d := range days {
		if !uniqueMap[d] {
			uniqueMap[d] = true
			uniqueDays = append(uniqueDays, d)
		}
	}

	sort.Ints(uniqueDays)
	return uniqueDays
}

func validateAndNormalize(title, desc, color, hType, cadence, reminder string, target int, weekdays []int) (streak.Cadence, int, error) {
	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle == "" {
		return "", 0, ErrHabitTitleEmpty
	}
	if len(trimmedTitle) > MaxTitleLen {
		return "", 0, ErrHabitTitleTooLong
	}

	if len(strings.TrimSpace(desc)) > MaxDescLen {
		return "", 0, ErrHabitDescTooLong
	}

	finalTarget := target
	if hType == HabitTypeBoolean {
		finalTarget = 1
	} else if target < 0 {
		return "", 0, ErrInvalidTarget
	}

	switch hType {
	case HabitTypeBoolean, HabitTypeNumeric, HabitTypeTimer:
	default:
		return "", 0, ErrInvalidHabitType
	}

	finalCadence := streak.Cadence(cadence)
	switch finalCadence {
	case "":
		finalCadence = streak.CadenceDaily
	case streak.CadenceDaily, streak.CadenceWeekly, streak.CadenceCustom:
	default:
		return "", 0, ErrInvalidCadence
	}

	if reminder != "" && !reminderRegex.MatchString(reminder) {
		return "", 0, ErrInvalidReminder
	}

	for _, day := range weekdays {
		if day < 0 || day > 6 {
			return "", 0, ErrInvalidWeekdays
		}
	}

	if color != "" && !colorRegex.MatchString(color) {
		return "", 0, ErrInvalidColor
	}

	return finalCadence, finalTarget, nil
}

// NewHabit builds a boolean daily habit. An empty id is replaced by a
// fresh UUID; clients working offline supply their own.
func NewHabit(id, title, userID string) (*Habit, error) {
	if userID == "" {
		return nil, ErrHabitInvalidUserID
	}

	cadence, target, err := validateAndNormalize(title, "", "", HabitTypeBoolean, "", "", 1, nil)
	if err != nil {
		return nil, err
	}

	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC()

	return &Habit{
		ID:          id,
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Icon:        DefaultIcon,
		Type:        HabitTypeBoolean,
		Cadence:     cadence,
		TargetValue: target,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		StartDate:   now,
	}, nil
}

func (h *Habit) Update(title, description, color, icon, hType, cadence, reminder, unit string, target int, weekdays []int) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	cleanDesc := strings.TrimSpace(description)

	finalCadence, safeTarget, err := validateAndNormalize(title, cleanDesc, color, hType, cadence, reminder, target, weekdays)
	if err != nil {
		return err
	}

	if icon == "" {
		icon = DefaultIcon
	}

	var remPtr *string
	if reminder != "" {
		remPtr = &reminder
	}

	h.Title = strings.TrimSpace(title)
	h.Description = cleanDesc
	h.Color = color
	h.Icon = icon
	h.Type = hType
	h.Cadence = finalCadence
	h.ReminderTime = remPtr
	h.Unit = unit
	h.TargetValue = safeTarget
	h.Weekdays = normalizeWeekdays(weekdays)

	h.UpdatedAt = time.Now().UTC()

	return nil
}

func (h *Habit) UpdateStreak(current, longest int) {
	h.CurrentStreak = current
	h.LongestStreak = longest
	h.UpdatedAt = time.Now().UTC()
}

func (h *Habit) ChangePosition(newOrder int) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	h.SortOrder = newOrder
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func (h *Habit) Archive() {
	if h.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.ArchivedAt = &now
	h.UpdatedAt = now
}

func (h *Habit) Restore() {
	if h.ArchivedAt == nil {
		return
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
}
