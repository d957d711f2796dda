package utils

import "time"

// SetDefaultRequestTimeout replaces the timeout of requests without a deadline.
func SetDefaultRequestTimeout(d time.Duration) (restore func()) {
	orig := defaultRequestTimeout
	defaultRequestTimeout = d
	return func() { defaultRequestTimeout = orig }
}
