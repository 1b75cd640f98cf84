// Package timeutil provides calendar-day utilities for the StudyHub
// progression core. Streaks, review scheduling, and daily XP caps all
// reason about whole calendar days, so every date comparison and every
// "yesterday"/"tomorrow" computation in the codebase must go through the
// primitives here. Day arithmetic always uses time.Time.AddDate, never
// manual day-of-month math, so month and year boundaries are handled by
// the standard library.
//
// All day boundaries are computed in UTC. The daily-cap reset and streak
// day therefore roll over at midnight UTC for every student regardless of
// their local timezone.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// ReferenceZone is the timezone in which calendar days are computed.
// Day boundaries (streaks, daily caps, review due dates) roll over at
// midnight in this zone.
var ReferenceZone = time.UTC

// Now returns the current time in the reference zone.
func Now() time.Time {
	return time.Now().In(ReferenceZone)
}

// Today returns the start of the current calendar day.
func Today() time.Time {
	return DateOf(Now())
}

// DateOf truncates a time to the start of its calendar day (00:00:00)
// in the reference zone. Two times on the same day map to the same value.
func DateOf(t time.Time) time.Time {
	r := t.In(ReferenceZone)
	return time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, ReferenceZone)
}

// Date creates the start of the given calendar day in the reference zone.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, ReferenceZone)
}

// AddDays shifts a time by n calendar days. Negative n moves backwards.
// Delegates to AddDate so Jan 31 + 1 day is Feb 1 and Mar 1 - 1 day is
// Feb 28 (or 29), with no day-of-month arithmetic anywhere.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// NextDay returns the start of the day after t.
func NextDay(t time.Time) time.Time {
	return AddDays(DateOf(t), 1)
}

// PreviousDay returns the start of the day before t.
func PreviousDay(t time.Time) time.Time {
	return AddDays(DateOf(t), -1)
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

// IsNextDay reports whether b falls on the calendar day immediately
// after a's day.
func IsNextDay(a, b time.Time) bool {
	return NextDay(a).Equal(DateOf(b))
}

// DaysBetween returns the number of whole calendar days from a's day to
// b's day. Positive when b is after a, negative when before.
func DaysBetween(a, b time.Time) int {
	start := DateOf(a)
	end := DateOf(b)
	// Both values sit at UTC midnight, so the difference is always a
	// whole number of 24h periods.
	return int(end.Sub(start).Hours() / 24)
}

// StartOfDay returns the start of t's calendar day. Alias of DateOf kept
// for call-site readability.
func StartOfDay(t time.Time) time.Time {
	return DateOf(t)
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return AddDays(DateOf(t), 1).Add(-time.Nanosecond)
}

// FormatDate is the canonical date format (YYYY-MM-DD) used for ledger
// keys and logging.
const FormatDate = "2006-01-02"

// DateKey formats a time's calendar day as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return DateOf(t).Format(FormatDate)
}

// ParseDate parses a YYYY-MM-DD string as the start of that day.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, ReferenceZone)
}
