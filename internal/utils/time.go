package utils

import (
	"time"
)

// NowMillis returns the current UTC time as epoch milliseconds, the unit
// used for every persisted timestamp.
func NowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

// MillisToTime converts epoch milliseconds back to a time.Time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
