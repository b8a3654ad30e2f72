package trainingload

import (
	"strings"
	"time"
	// zone names must resolve on hosts without a system zoneinfo database
	_ "time/tzdata"
)

const dayLayout = time.DateOnly

// DateOf returns the calendar date of t as midnight UTC, the representation
// used for every day key in this package.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a day key.
func ParseDay(s string) (time.Time, error) {
	d, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(d), nil
}

// FormatDay is the inverse of ParseDay.
func FormatDay(d time.Time) string {
	return d.Format(dayLayout)
}

// zoneName extracts the IANA zone from a source timezone label.
// The source usually sends "(GMT+01:00) Europe/Madrid", sometimes the bare name.
func zoneName(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "(") {
		if _, rest, ok := strings.Cut(s, " "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return s
}

// ResolveDay returns the local calendar day an activity belongs to.
// Unknown or malformed zones fall back to the date of start as supplied.
func ResolveDay(start time.Time, rawTimezone string) time.Time {
	if name := zoneName(rawTimezone); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return DateOf(start.In(loc))
		}
	}
	return DateOf(start)
}

// WeekStart returns the Monday on or before d.
func WeekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return DateOf(d).AddDate(0, 0, -offset)
}

// DayRange enumerates every calendar day in [from, to].
func DayRange(from, to time.Time) []time.Time {
	from, to = DateOf(from), DateOf(to)
	if to.Before(from) {
		return nil
	}
	days := make([]time.Time, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
