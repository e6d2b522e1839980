// Package timewindow turns calendar dates and "H:mm" clock strings into instants.
package timewindow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Combine builds an instant from the year/month/day of date and the hour/minute of clock.
// Seconds are zero. Unparseable hour or minute parts fall back to 0.
func Combine(date time.Time, clock string) time.Time {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	hour, _ := strconv.Atoi(parts[0])
	minute := 0
	if len(parts) > 1 {
		minute, _ = strconv.Atoi(parts[1])
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}

// MinutesBetween returns a-b in minutes, signed.
func MinutesBetween(a, b time.Time) float64 {
	return a.Sub(b).Minutes()
}

// ParseClock validates an "H:mm" or "HH:mm" string in 24-hour form.
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 || len(parts[1]) != 2 || parts[0] == "" || len(parts[0]) > 2 {
		return 0, 0, fmt.Errorf("invalid time format: %q", clock)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour: %q", clock)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute: %q", clock)
	}

	return hour, minute, nil
}

// FormatClock renders hour and minute as "H:mm".
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%d:%02d", hour, minute)
}

// NormalizeClock validates clock and returns its canonical "H:mm" form.
func NormalizeClock(clock string) (string, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	return FormatClock(h, m), nil
}

// StartOfDay truncates t to local midnight of its own calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseDate accepts "2006-01-02" or an RFC3339 timestamp and returns midnight of the calendar
// date as written, in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}

	if d, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return d, nil
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
