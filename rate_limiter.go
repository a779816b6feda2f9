// rate_limiter.go
// ----------------
// This file defines the RateLimiter type, which remembers throttling signals
// returned by FamilySearch for each environment and call type. FamilySearch
// answers throttled requests with 429 and a Retry-After header; the limiter
// turns that into a reset time so that the next request for the same key
// waits instead of being rejected again.
//
// Responsibilities:
// - Parsing throttling info from a NormalizedResponse (ParseRateLimitInfo).
// - Storing the info keyed by "environment:callType".
// - Calculating the delay before the next allowed request.
package fsbridge

import (
	"net/http"
	"sync"
	"time"

	"github.com/opengovern/familysearch-bridge/internal"
)

type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*NormalizedRateLimitInfo
	now    func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*NormalizedRateLimitInfo),
		now:    time.Now,
	}
}

// IsRateLimitError reports whether the response is a throttling rejection.
func IsRateLimitError(resp *NormalizedResponse) bool {
	return resp != nil && resp.StatusCode == http.StatusTooManyRequests
}

// ParseRateLimitInfo extracts throttling hints from a response. It returns nil
// when the response carries none.
func ParseRateLimitInfo(resp *NormalizedResponse, now time.Time) *NormalizedRateLimitInfo {
	if resp == nil {
		return nil
	}
	throttled := IsRateLimitError(resp)
	wait, ok := internal.ParseRetryAfter(resp.Header("Retry-After"), now)
	if !throttled && !ok {
		return nil
	}

	info := &NormalizedRateLimitInfo{Throttled: throttled}
	if ok {
		ms := wait.Milliseconds()
		reset := now.UnixMilli() + ms
		info.RetryAfterMs = &ms
		info.ResetRequestsAt = &reset
	}
	return info
}

// UpdateRateLimits stores the info for the key. A nil info clears the key.
func (r *RateLimiter) UpdateRateLimits(env Environment, callType string, info *NormalizedRateLimitInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := string(env) + ":" + callType
	if info == nil {
		delete(r.limits, key)
		return
	}
	r.limits[key] = info
}

// clearExpired drops the key once its reset time has passed. A reset that is
// still ahead is kept.
func (r *RateLimiter) clearExpired(env Environment, callType string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := string(env) + ":" + callType
	info, ok := r.limits[key]
	if !ok {
		return
	}
	if info != nil && info.ResetRequestsAt != nil && internal.IsInFuture(*info.ResetRequestsAt, r.now()) {
		return
	}
	delete(r.limits, key)
}

// delayBeforeNextRequest returns how long to wait before the next request for
// the key may be sent.
func (r *RateLimiter) delayBeforeNextRequest(env Environment, callType string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.limits[string(env)+":"+callType]
	if !ok || info == nil || info.ResetRequestsAt == nil {
		return 0
	}

	now := r.now()
	if !internal.IsInFuture(*info.ResetRequestsAt, now) {
		return 0
	}
	return time.Duration(*info.ResetRequestsAt-now.UnixMilli()) * time.Millisecond
}

// GetRateLimitInfo returns a copy of the info for the environment's "rest"
// call type, or nil.
func (r *RateLimiter) GetRateLimitInfo(env Environment) *NormalizedRateLimitInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, ok := r.limits[string(env)+":rest"]; ok && info != nil {
		copyInfo := *info
		return &copyInfo
	}
	return nil
}
