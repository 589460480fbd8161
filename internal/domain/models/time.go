package models

import "time"

const nanosPerMilli = int64(time.Millisecond)

// TimeFromNanos converts a backend timestamp (nanoseconds since epoch) to a time.Time
// with millisecond precision.
func TimeFromNanos(ns int64) time.Time {
	return time.UnixMilli(ns / nanosPerMilli)
}

// NanosFromTime converts t to the backend timestamp representation.
func NanosFromTime(t time.Time) int64 {
	return t.UnixNano()
}
