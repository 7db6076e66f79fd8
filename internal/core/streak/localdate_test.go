package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustInstant(t *testing.T, s string) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad instant %q: %v", s, err)
	}
	return at
}

func TestResolveLocalDate(t *testing.T) {
	tests := []struct {
		name      string
		timezone  string
		graceHour int
		instant   string
		want      string
	}{
		{"Grace window moves 02:45 to previous day", "America/New_York", 3, "2024-03-02T07:45:00Z", "2024-03-01"},
		{"Exactly at grace hour stays on same day", "America/New_York", 3, "2024-03-02T08:00:00Z", "2024-03-02"},
		{"Grace hour 6 catches 05:30", "America/New_York", 6, "2024-06-10T09:30:00Z", "2024-06-09"},
		{"Grace hour 3 keeps 05:30", "America/New_York", 3, "2024-06-10T09:30:00Z", "2024-06-10"},
		{"Zero grace hour disables reattribution", "America/New_York", 0, "2024-03-02T05:30:00Z", "2024-03-02"},
		{"Eastern timezone crosses date forward", "Asia/Tokyo", 3, "2024-01-01T20:00:00Z", "2024-01-02"},
		{"UTC evening stays put", "UTC", 3, "2024-01-01T23:59:00Z", "2024-01-01"},
		{"Unknown timezone falls back to UTC", "Mars/Olympus_Mons", 3, "2024-01-01T12:00:00Z", "2024-01-01"},
		{"Empty timezone falls back to UTC", "", 3, "2024-01-01T02:00:00Z", "2023-12-31"},
		{"Year boundary through grace", "Europe/Rome", 3, "2024-01-01T01:30:00Z", "2023-12-31"},
		{"Negative grace clamps to zero", "UTC", -5, "2024-01-01T00:30:00Z", "2024-01-01"},
		{"Oversized grace clamps to 23", "UTC", 40, "2024-01-01T22:30:00Z", "2023-12-31"},
		{"Spring forward short day, late evening", "America/New_York", 3, "2024-03-11T03:30:00Z", "2024-03-10"},
		{"Fall back repeated hour, first pass", "America/New_York", 3, "2024-11-03T05:30:00Z", "2024-11-02"},
		{"Fall back repeated hour, second pass", "America/New_York", 3, "2024-11-03T06:30:00Z", "2024-11-02"},
		{"Fall back after grace", "America/New_York", 3, "2024-11-03T08:00:00Z", "2024-11-03"},
		{"Half hour offset", "Asia/Kolkata", 3, "2024-05-01T21:00:00Z", "2024-05-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveLocalDate(tt.timezone, tt.graceHour, mustInstant(t, tt.instant))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadLocation(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Local"))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"), "cached fallback must stay UTC")

	ny := LoadLocation("America/New_York")
	assert.Equal(t, "America/New_York", ny.String())
	assert.Same(t, ny, LoadLocation("America/New_York"))
}

func TestLocalDate(t *testing.T) {
	t.Run("Pre-resolved date bypasses grace hour", func(t *testing.T) {
		got, ok := LocalDate(LocalDateEntry{Date: "2024-03-02", N: 1}, "America/New_York", 23)
		assert.True(t, ok)
		assert.Equal(t, "2024-03-02", got)
	})

	t.Run("Instant goes through the resolver", func(t *testing.T) {
		got, ok := LocalDate(InstantEntry{At: mustInstant(t, "2024-03-02T07:45:00Z"), N: 1}, "America/New_York", 3)
		assert.True(t, ok)
		assert.Equal(t, "2024-03-01", got)
	})

	t.Run("Inert entries", func(t *testing.T) {
		_, ok := LocalDate(InstantEntry{N: 1}, "UTC", 3)
		assert.False(t, ok)
		_, ok = LocalDate(LocalDateEntry{Date: "yesterday", N: 1}, "UTC", 3)
		assert.False(t, ok)
		_, ok = LocalDate(nil, "UTC", 3)
		assert.False(t, ok)
	})
}

func TestInstantBounds(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		timezone  string
		graceHour int
		wantFrom  string
		wantTo    string
	}{
		{"UTC with default grace", "UTC", 3, "2024-01-01T02:00:00Z", "2024-01-08T04:00:00Z"},
		{"Far west with late grace", "Etc/GMT+12", 23, "2024-01-02T10:00:00Z", "2024-01-09T12:00:00Z"},
		{"Far east without grace", "Pacific/Kiritimati", 0, "2023-12-31T09:00:00Z", "2024-01-07T11:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := InstantBounds(tt.timezone, tt.graceHour, first, last)
			assert.Equal(t, mustInstant(t, tt.wantFrom), from)
			assert.Equal(t, mustInstant(t, tt.wantTo), to)
		})
	}

	t.Run("Every instant of the range resolves inside the bounds", func(t *testing.T) {
		for _, tz := range []string{"Etc/GMT+12", "America/New_York", "Pacific/Kiritimati"} {
			for _, g := range []int{0, 3, 23} {
				from, to := InstantBounds(tz, g, first, last)
				for at := from.Add(-6 * time.Hour); at.Before(to.Add(6 * time.Hour)); at = at.Add(15 * time.Minute) {
					d := ResolveLocalDate(tz, g, at)
					if d >= "2024-01-01" && d <= "2024-01-07" {
						assert.False(t, at.Before(from) || at.After(to), "%s g=%d %s", tz, g, at)
					}
				}
			}
		}
	})
}
