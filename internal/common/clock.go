package common

import "time"

// TimestampLayout is the ISO-8601 layout used for every stored timestamp.
// Millisecond precision is fixed so lexical order matches time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Clock is the timestamp source for created_at/updated_at stamping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp. RFC 3339 values written by other
// devices are accepted as well.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
