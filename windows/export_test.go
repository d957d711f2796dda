package windows

import "time"

// SetTimeNow replaces the clock used for the derived end-of-life flags.
func SetTimeNow(now time.Time) (restore func()) {
	orig := timeNow
	timeNow = func() time.Time { return now }
	return func() { timeNow = orig }
}
