// Package streak computes current and longest streaks from sparse check-in
// entries. Every function is pure: results depend only on the arguments,
// including the supplied "now".
package streak

import (
	"sort"
	"time"
)

type Result struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Params describes the habit a computation runs for. GraceHour is clamped
// to [0, 23]; zero disables previous-day attribution. A Target of zero or
// less means the habit is not tracked and yields no streak. A zero Now is
// replaced by the wall clock.
type Params struct {
	Cadence   Cadence
	Timezone  string
	GraceHour int
	Target    int
	Now       time.Time
}

func DefaultParams(c Cadence, timezone string, now time.Time) Params {
	return Params{
		Cadence:   c,
		Timezone:  timezone,
		GraceHour: DefaultGraceHour,
		Target:    1,
		Now:       now,
	}
}

type AccountParams struct {
	Timezone  string
	GraceHour int
	Now       time.Time
}

// resolver carries the per-call state shared by every entry.
type resolver struct {
	cadence   Cadence
	loc       *time.Location
	graceHour int
	now       Period
}

func newResolver(c Cadence, timezone string, graceHour int, now time.Time) resolver {
	if now.IsZero() {
		now = time.Now()
	}
	r := resolver{
		cadence:   c,
		loc:       LoadLocation(timezone),
		graceHour: clampGraceHour(graceHour),
	}
	r.now = PeriodOf(c, resolveDate(r.loc, r.graceHour, now))
	return r
}

func (r resolver) period(e Entry) (Period, bool) {
	if e == nil {
		return Period{}, false
	}
	d, ok := e.localDate(r.loc, r.graceHour)
	if !ok {
		return Period{}, false
	}
	return PeriodOf(r.cadence, d), true
}

// collect adds every period holding at least one positive entry. Positivity
// is tested per entry, never on a sum.
func (r resolver) collect(active map[Period]struct{}, entries []Entry) {
	for _, e := range entries {
		if e == nil || e.Count() <= 0 {
			continue
		}
		if p, ok := r.period(e); ok {
			active[p] = struct{}{}
		}
	}
}

// Compute returns the current and longest streak of a single habit.
func Compute(entries []Entry, p Params) Result {
	if p.Target <= 0 || !p.Cadence.Tracked() || len(entries) == 0 {
		return Result{}
	}
	r := newResolver(p.Cadence, p.Timezone, p.GraceHour, p.Now)
	active := make(map[Period]struct{}, len(entries))
	r.collect(active, entries)
	return scan(active, r.now)
}

// ActivePeriods returns the keys of all periods with positive activity.
func ActivePeriods(entries []Entry, p Params) map[string]struct{} {
	keys := make(map[string]struct{})
	if !p.Cadence.Tracked() {
		return keys
	}
	r := newResolver(p.Cadence, p.Timezone, p.GraceHour, p.Now)
	active := make(map[Period]struct{}, len(entries))
	r.collect(active, entries)
	for period := range active {
		keys[period.Key()] = struct{}{}
	}
	return keys
}

// ScanStreak runs the streak scan over a set of period keys. Keys that do
// not parse under the cadence are ignored.
func ScanStreak(active map[string]struct{}, p Params) Result {
	if !p.Cadence.Tracked() || len(active) == 0 {
		return Result{}
	}
	r := newResolver(p.Cadence, p.Timezone, p.GraceHour, p.Now)
	periods := make(map[Period]struct{}, len(active))
	for key := range active {
		if period, err := ParsePeriodKey(p.Cadence, key); err == nil {
			periods[period] = struct{}{}
		}
	}
	return scan(periods, r.now)
}

// CurrentPeriodCount sums the raw counts, zero and negative included, of
// the entries falling in now's period. Custom cadences are bucketed daily.
func CurrentPeriodCount(entries []Entry, p Params) int {
	c := p.Cadence
	if !c.Tracked() {
		c = CadenceDaily
	}
	r := newResolver(c, p.Timezone, p.GraceHour, p.Now)
	total := 0
	for _, e := range entries {
		if period, ok := r.period(e); ok && period == r.now {
			total += e.Count()
		}
	}
	return total
}

// ComputeAccount returns the daily streak over the union of all habits'
// activity: a day counts when any habit had a positive entry on it.
func ComputeAccount(allHabitEntries [][]Entry, p AccountParams) Result {
	r := newResolver(CadenceDaily, p.Timezone, p.GraceHour, p.Now)
	active := make(map[Period]struct{})
	for _, entries := range allHabitEntries {
		r.collect(active, entries)
	}
	return scan(active, r.now)
}

func scan(active map[Period]struct{}, now Period) Result {
	periods := make([]Period, 0, len(active))
	for p := range active {
		if !now.Before(p) {
			periods = append(periods, p)
		}
	}
	if len(periods) == 0 {
		return Result{}
	}

	has := func(p Period) bool {
		_, ok := active[p]
		return ok
	}

	current := 0
	cursor := now
	if !has(cursor) {
		cursor = cursor.Prev()
	}
	for has(cursor) {
		current++
		cursor = cursor.Prev()
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Before(periods[j])
	})

	longest, run := 1, 1
	for i := 1; i < len(periods); i++ {
		if periods[i].Follows(periods[i-1]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	return Result{Current: current, Longest: max(longest, current)}
}
