package fsbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const restCallType = "rest"

// RequestExecutor handles retry logic, backoff, and consulting the RateLimiter.
//
// A GET is retried on network errors and 5xx responses. Any method is retried
// on a 429, since the server did not apply a throttled request. Everything
// else is returned on the first attempt. Attempts for one call never overlap.
type RequestExecutor struct {
	env                   Environment
	maxRetries            int
	baseBackoff           time.Duration
	maxBackoff            time.Duration
	jitter                float64
	throttleFallbackDelay time.Duration
	maxThrottleDelay      time.Duration

	rateLimiter *RateLimiter
	metrics     *Metrics
	logger      *logrus.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRequestExecutor(cfg Config, rateLimiter *RateLimiter, metrics *Metrics) *RequestExecutor {
	cfg = cfg.withDefaults()
	if rateLimiter == nil {
		rateLimiter = NewRateLimiter()
	}
	return &RequestExecutor{
		env:                   cfg.Environment,
		maxRetries:            max(cfg.MaxRetries, 0),
		baseBackoff:           cfg.BaseBackoff,
		maxBackoff:            cfg.MaxBackoff,
		jitter:                cfg.Jitter,
		throttleFallbackDelay: cfg.ThrottleFallbackDelay,
		maxThrottleDelay:      cfg.MaxThrottleDelay,
		rateLimiter:           rateLimiter,
		metrics:               metrics,
		logger:                cfg.Logger,
		now:                   time.Now,
		sleep:                 sleepContext,
	}
}

// ExecuteWithRetry runs operation for req until it succeeds, fails terminally
// or the retry budget is spent. On HTTP failures the last response is returned
// together with the error so callers can still read its status and headers.
// A spent budget wraps the last failure with ErrRetryBudgetExhausted.
func (re *RequestExecutor) ExecuteWithRetry(ctx context.Context, req *NormalizedRequest, operation func(ctx context.Context) (*NormalizedResponse, error)) (*NormalizedResponse, error) {
	log := re.logger.WithFields(logrus.Fields{
		"method":   req.Method,
		"endpoint": req.Endpoint,
	})
	schedule := re.newBackOff()

	attempts := 0
	for {
		if delay := re.rateLimiter.delayBeforeNextRequest(re.env, restCallType); delay > 0 {
			log.Debugf("Must wait %v before next request due to rate limit.", delay)
			if err := re.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		log.WithField("attempt", attempts+1).Debug("Sending request")
		startedAt := re.now()
		resp, err := operation(ctx)
		re.metrics.observeAttempt(req.Method, resp, err, re.now().Sub(startedAt))

		var failure error
		var reason string
		var wait time.Duration

		switch {
		case err != nil:
			if ctx.Err() != nil || !req.isIdempotent() || !IsTransient(err) {
				log.WithError(err).Debug("Request failed. Not retrying.")
				return nil, err
			}
			failure, reason = err, retryReasonTransient
			wait = schedule.NextBackOff()

		case IsRateLimitError(resp):
			info := re.capThrottle(ParseRateLimitInfo(resp, re.now()))
			re.rateLimiter.UpdateRateLimits(re.env, restCallType, info)
			failure, reason = newResponseError(req, resp), retryReasonThrottled
			wait = re.throttleDelay(info, schedule.NextBackOff())

		case resp.StatusCode >= 500:
			re.rateLimiter.clearExpired(re.env, restCallType)
			failure = newResponseError(req, resp)
			if !req.isIdempotent() {
				log.Debugf("Server error %d on non-idempotent request. Not retrying.", resp.StatusCode)
				return resp, failure
			}
			reason = retryReasonTransient
			wait = schedule.NextBackOff()

		case resp.StatusCode >= 400:
			re.rateLimiter.clearExpired(re.env, restCallType)
			log.Debugf("Client error %d encountered. Not retrying.", resp.StatusCode)
			return resp, newResponseError(req, resp)

		default:
			re.rateLimiter.clearExpired(re.env, restCallType)
			if attempts > 0 {
				log.Debugf("Request succeeded after %d attempts.", attempts+1)
			} else {
				log.Debug("Request succeeded on first attempt.")
			}
			return resp, nil
		}

		if attempts >= re.maxRetries {
			log.WithError(failure).Debugf("Max retries (%d) reached. Giving up.", re.maxRetries)
			return resp, fmt.Errorf("%w after %d attempts: %w", ErrRetryBudgetExhausted, attempts+1, failure)
		}

		log.WithError(failure).Debugf("Retrying in %v (%s, attempt %d/%d)...", wait, reason, attempts+1, re.maxRetries)
		re.metrics.observeRetry(reason)
		if err := re.sleep(ctx, wait); err != nil {
			return resp, err
		}
		attempts++
	}
}

// capThrottle bounds a server-requested wait by maxThrottleDelay.
func (re *RequestExecutor) capThrottle(info *NormalizedRateLimitInfo) *NormalizedRateLimitInfo {
	if info == nil || info.RetryAfterMs == nil {
		return info
	}
	limit := re.maxThrottleDelay.Milliseconds()
	if *info.RetryAfterMs <= limit {
		return info
	}
	re.logger.Debugf("Retry-After of %dms exceeds the %v cap.", *info.RetryAfterMs, re.maxThrottleDelay)
	capped := *info
	reset := *info.ResetRequestsAt - *info.RetryAfterMs + limit
	capped.RetryAfterMs = &limit
	capped.ResetRequestsAt = &reset
	return &capped
}

// throttleDelay prefers the server's Retry-After. Without one it waits at least
// throttleFallbackDelay, or the backoff step when that is longer.
func (re *RequestExecutor) throttleDelay(info *NormalizedRateLimitInfo, step time.Duration) time.Duration {
	if info != nil && info.RetryAfterMs != nil {
		return time.Duration(*info.RetryAfterMs) * time.Millisecond
	}
	if step < re.throttleFallbackDelay {
		return re.throttleFallbackDelay
	}
	return step
}

// newBackOff returns the schedule for one logical call: baseBackoff * 2^n,
// capped at maxBackoff. Attempts are bounded by maxRetries, not elapsed time.
func (re *RequestExecutor) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = re.baseBackoff
	b.Multiplier = 2
	b.MaxInterval = re.maxBackoff
	b.RandomizationFactor = re.jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
