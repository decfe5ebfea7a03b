package utils

import (
	"time"
)

// Timestamp returns the current UTC time as an RFC 3339 string, the
// format used for timestamps throughout our services.
func Timestamp() string {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp renders t in UTC as an RFC 3339 string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp parses an RFC 3339 string.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// NowUnixMilli returns the current time in milliseconds since the epoch.
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
