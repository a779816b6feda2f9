// internal/retry_after.go
// ------------------------
// Helpers for turning the throttling hints FamilySearch sends back into
// concrete wait times.
//
// Functions:
// - ParseRetryAfter: Convert a Retry-After value (delta-seconds or HTTP-date) into a duration.
// - IsInFuture: Check if a given timestamp (ms) is in the future.
package internal

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxRetryAfter bounds the waits ParseRetryAfter returns.
const MaxRetryAfter = 24 * time.Hour

// ParseRetryAfter converts a Retry-After header value into a wait duration
// relative to now. The second return value is false when the value is empty
// or unparseable. Dates in the past yield a zero wait, and waits longer than
// MaxRetryAfter are clamped to it.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs > int64(MaxRetryAfter/time.Second) {
			return MaxRetryAfter, true
		}
		return time.Duration(secs) * time.Second, true
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return min(d, MaxRetryAfter), true
		}
		return 0, true
	}

	return 0, false
}

// IsInFuture checks if a timestamp (in ms) is in the future relative to now.
func IsInFuture(ms int64, now time.Time) bool {
	return ms > now.UnixMilli()
}
