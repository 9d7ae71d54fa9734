package utils

import "time"

// GetCurrentTimeMillis returns the wall clock in epoch milliseconds, the unit
// of every stored and wire timestamp
func GetCurrentTimeMillis() int64 {
	return time.Now().UnixMilli()
}
