package streak

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DateFormat is the layout of local calendar dates and daily period keys.
const DateFormat = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

var (
	ErrInvalidLocalDate = errors.New("invalid local date (must be YYYY-MM-DD)")
	ErrInvalidPeriodKey = errors.New("invalid period key")
	ErrUntrackedCadence = errors.New("cadence has no period semantics")
)

type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
	CadenceCustom Cadence = "custom"
)

// Tracked reports whether streaks are computed for the cadence.
func (c Cadence) Tracked() bool {
	return c == CadenceDaily || c == CadenceWeekly
}

// Period is a cadence bucket identified by its first local calendar date,
// stored as a day number counted from 1970-01-01.
type Period struct {
	cadence Cadence
	day     int64
}

// PeriodOf returns the period containing the calendar date of d. Only the
// year, month and day of d are used; its location is ignored.
func PeriodOf(c Cadence, d time.Time) Period {
	day := dayNumber(d.Year(), d.Month(), d.Day())
	if c == CadenceWeekly {
		day -= int64(isoWeekday(day) - 1)
	}
	return Period{cadence: c, day: day}
}

// PeriodKey maps a local date to the cadence-specific key: the date itself
// for daily, the ISO-8601 week ("2024-W01") for weekly.
func PeriodKey(c Cadence, localDate string) (string, error) {
	if !c.Tracked() {
		return "", ErrUntrackedCadence
	}
	d, err := ParseLocalDate(localDate)
	if err != nil {
		return "", err
	}
	return PeriodOf(c, d).Key(), nil
}

// ParsePeriodKey is the inverse of Period.Key.
func ParsePeriodKey(c Cadence, key string) (Period, error) {
	switch c {
	case CadenceDaily:
		d, err := ParseLocalDate(key)
		if err != nil {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
		}
		return PeriodOf(c, d), nil
	case CadenceWeekly:
		if len(key) != 8 || key[4:6] != "-W" {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
		}
		if !allDigits(key[:4]) || !allDigits(key[6:]) {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
		}
		year, _ := strconv.Atoi(key[:4])
		week, _ := strconv.Atoi(key[6:])
		if week < 1 || week > isoWeeksInYear(year) {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
		}
		return Period{cadence: c, day: isoWeekOneMonday(year) + int64(7*(week-1))}, nil
	default:
		return Period{}, ErrUntrackedCadence
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// ParseLocalDate parses a YYYY-MM-DD calendar date into UTC midnight.
func ParseLocalDate(s string) (time.Time, error) {
	d, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidLocalDate, s)
	}
	return d, nil
}

func (p Period) Cadence() Cadence { return p.cadence }

// Start returns the first calendar date of the period at UTC midnight.
func (p Period) Start() time.Time {
	return time.Unix(p.day*secondsPerDay, 0).UTC()
}

func (p Period) Key() string {
	if p.cadence == CadenceWeekly {
		year, week := isoWeek(p.day)
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return p.Start().Format(DateFormat)
}

func (p Period) String() string { return p.Key() }

func (p Period) Prev() Period { return Period{cadence: p.cadence, day: p.day - p.length()} }

func (p Period) Next() Period { return Period{cadence: p.cadence, day: p.day + p.length()} }

func (p Period) Before(q Period) bool { return p.day < q.day }

// Follows reports whether p is the period immediately after q.
func (p Period) Follows(q Period) bool { return q.Next() == p }

func (p Period) length() int64 {
	if p.cadence == CadenceWeekly {
		return 7
	}
	return 1
}

func dayNumber(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

// isoWeekday returns 1 for Monday through 7 for Sunday. Day 0 was a Thursday.
func isoWeekday(day int64) int {
	return int(((day+3)%7+7)%7) + 1
}

// isoWeek shifts to the Thursday of the same Monday-based week; that
// Thursday's year is the ISO year and its ordinal position gives the week.
func isoWeek(day int64) (year, week int) {
	thursday := time.Unix((day+int64(4-isoWeekday(day)))*secondsPerDay, 0).UTC()
	return thursday.Year(), (thursday.YearDay()-1)/7 + 1
}

// January 4th always falls in ISO week 1.
func isoWeekOneMonday(year int) int64 {
	jan4 := dayNumber(year, time.January, 4)
	return jan4 - int64(isoWeekday(jan4)-1)
}

// December 28th always falls in the last ISO week of its year.
func isoWeeksInYear(year int) int {
	_, week := isoWeek(dayNumber(year, time.December, 28))
	return week
}
