package messaging

import "time"

const (
	clockLayout    = "15:04"
	monthDayLayout = "Jan 2"

	day = 24 * time.Hour
)

// FromNanos converts a backend timestamp. The value is reduced to
// milliseconds first, so sub-millisecond precision is dropped.
func FromNanos(ns int64) time.Time {
	return time.UnixMilli(ns / 1_000_000)
}

// ClockTime renders the time of day of a message.
func ClockTime(t time.Time) string {
	return t.Format(clockLayout)
}

// RelativeTime buckets t by whole days elapsed before now: under one day
// is a clock time, one day is "Yesterday", up to six days is the weekday
// name and anything older is an abbreviated month and day. Times in the
// future render as a clock time.
func RelativeTime(t, now time.Time) string {
	t = t.In(now.Location())
	elapsed := now.Sub(t)
	if elapsed < 0 {
		return t.Format(clockLayout)
	}
	switch days := int(elapsed / day); {
	case days == 0:
		return t.Format(clockLayout)
	case days == 1:
		return "Yesterday"
	case days < 7:
		return t.Weekday().String()
	default:
		return t.Format(monthDayLayout)
	}
}
