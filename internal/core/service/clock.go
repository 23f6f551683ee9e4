package service

import "time"

// storedTime drops the precision postgres timestamps cannot hold, so a value
// returned right after an insert equals the one read back later.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
