package streak

import (
	"sync"
	"time"
)

// DefaultGraceHour is the local hour before which a check-in still counts
// toward the previous calendar day.
const DefaultGraceHour = 3

var locations sync.Map

// LoadLocation resolves an IANA timezone name. Empty, "Local" and unknown
// names resolve to UTC so that malformed profile data never fails a
// computation.
func LoadLocation(timezone string) *time.Location {
	if timezone == "" || timezone == "UTC" || timezone == "Local" {
		return time.UTC
	}
	if loc, ok := locations.Load(timezone); ok {
		return loc.(*time.Location)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	locations.Store(timezone, loc)
	return loc
}

// ResolveLocalDate returns the YYYY-MM-DD calendar date an instant belongs
// to for a user in timezone, attributing wall-clock times before graceHour
// to the previous day.
func ResolveLocalDate(timezone string, graceHour int, instant time.Time) string {
	return resolveDate(LoadLocation(timezone), clampGraceHour(graceHour), instant).Format(DateFormat)
}

// InstantBounds returns the instants covering the local dates first..last
// for a user in timezone. Both bounds are padded by an hour so a DST gap at
// the grace hour never cuts a day short; callers still resolve each instant.
func InstantBounds(timezone string, graceHour int, first, last time.Time) (from, to time.Time) {
	loc := LoadLocation(timezone)
	g := clampGraceHour(graceHour)
	from = time.Date(first.Year(), first.Month(), first.Day(), g, 0, 0, 0, loc).Add(-time.Hour)
	to = time.Date(last.Year(), last.Month(), last.Day()+1, g, 0, 0, 0, loc).Add(time.Hour)
	return from.UTC(), to.UTC()
}

// resolveDate does the day arithmetic on the civil date in UTC, where every
// day is 24 hours long, so DST transitions in loc cannot shift the result.
func resolveDate(loc *time.Location, graceHour int, instant time.Time) time.Time {
	local := instant.In(loc)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if local.Hour() < graceHour {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

func clampGraceHour(h int) int {
	switch {
	case h < 0:
		return 0
	case h > 23:
		return 23
	default:
		return h
	}
}
