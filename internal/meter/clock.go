package meter

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the persisted form of every naive timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

const dateLayout = "2006-01-02"

// Naive drops the location of t and keeps its wall clock, at second precision.
// The whole engine works on naive local times so that hour arithmetic is never
// disturbed by daylight saving transitions.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// MonthStart returns midnight on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = Naive(t)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NormalizeTimestamp builds the timestamp of an incoming reading. An empty
// timeOfDay means now truncated to the minute; "HH:MM" gets ":00" appended.
// An empty date means now's date. now must already be in the deployment zone.
func NormalizeTimestamp(now time.Time, timeOfDay, date string) (time.Time, error) {
	timeOfDay = strings.TrimSpace(timeOfDay)
	date = strings.TrimSpace(date)
	if date == "" {
		date = now.Format(dateLayout)
	}
	if timeOfDay == "" {
		timeOfDay = now.Format("15:04:00")
	}
	if strings.Count(timeOfDay, ":") < 2 {
		timeOfDay += ":00"
	}

	ts, err := time.Parse(TimestampLayout, date+" "+timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrInvalidTimestamp, date, timeOfDay)
	}
	return ts, nil
}

// Localize places the wall clock of a naive t in loc. A wall clock skipped by
// a daylight saving transition resolves the way time.Date does.
func Localize(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// ParseTimestamp parses a persisted timestamp as a naive value.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	return ts, nil
}

// FormatTimestamp renders t in the persisted layout.
func FormatTimestamp(t time.Time) string {
	return Naive(t).Format(TimestampLayout)
}

// LocalNow returns the current time in loc.
func LocalNow(loc *time.Location) time.Time {
	return time.Now().In(loc)
}
