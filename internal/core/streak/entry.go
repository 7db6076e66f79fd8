package streak

import "time"

// Entry is one unit of recorded activity for a habit. It is either a
// LocalDateEntry or an InstantEntry; no other implementations exist.
type Entry interface {
	Count() int
	localDate(loc *time.Location, graceHour int) (time.Time, bool)
}

// LocalDateEntry carries a calendar date already resolved by the caller.
// Timezone and grace hour are not applied to it.
type LocalDateEntry struct {
	Date string
	N    int
}

func (e LocalDateEntry) Count() int { return e.N }

func (e LocalDateEntry) localDate(_ *time.Location, _ int) (time.Time, bool) {
	d, err := ParseLocalDate(e.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// InstantEntry carries an absolute instant, resolved to a local date
// through the habit's timezone and grace hour.
type InstantEntry struct {
	At time.Time
	N  int
}

func (e InstantEntry) Count() int { return e.N }

func (e InstantEntry) localDate(loc *time.Location, graceHour int) (time.Time, bool) {
	if e.At.IsZero() {
		return time.Time{}, false
	}
	return resolveDate(loc, graceHour, e.At), true
}

// LocalDate returns the resolved calendar date of an entry, or false when
// the entry carries no usable date.
func LocalDate(e Entry, timezone string, graceHour int) (string, bool) {
	if e == nil {
		return "", false
	}
	d, ok := e.localDate(LoadLocation(timezone), clampGraceHour(graceHour))
	if !ok {
		return "", false
	}
	return d.Format(DateFormat), true
}
