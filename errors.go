package fsbridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidConfig is returned by New and Config.Validate.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrRetryBudgetExhausted wraps the last failure once MaxRetries is spent.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

	// ErrAccessTokenMissing is returned for calls made before a token is set.
	ErrAccessTokenMissing = errors.New("access token missing")

	// ErrAccessTokenExpired is returned when the stored token is past its expiry.
	ErrAccessTokenExpired = errors.New("access token expired")

	// ErrUnknownAccessor is returned by Decorated.Call for unregistered names.
	ErrUnknownAccessor = errors.New("unknown accessor")
)

// ResponseError is returned for any response that is not a 2xx/3xx success.
// The status, headers and body are kept exactly as the server sent them.
type ResponseError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func newResponseError(req *NormalizedRequest, resp *NormalizedResponse) *ResponseError {
	return &ResponseError{
		Method:     req.Method,
		Endpoint:   req.Endpoint,
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Data,
	}
}

func (e *ResponseError) Error() string {
	body := strings.ReplaceAll(string(e.Body), "\n", "")
	if len(body) > 256 {
		body = strings.ToValidUTF8(body[:256], "") + "..."
	}
	return fmt.Sprintf("%s %s returned %d %s: %s", e.Method, e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode), body)
}

// Response rebuilds the raw response the error was created from.
func (e *ResponseError) Response() *NormalizedResponse {
	return &NormalizedResponse{StatusCode: e.StatusCode, Headers: e.Headers, Data: e.Body}
}

// DecodeError is returned when a successful response body is not JSON the
// decorator can wrap.
type DecodeError struct {
	Response *NormalizedResponse
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// IsThrottled reports whether err is a rate-limit rejection from the server.
func IsThrottled(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsTransient reports whether err is a failure a GET may be retried on:
// a 5xx response or a network level error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode >= 500
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrAccessTokenMissing), errors.Is(err, ErrAccessTokenExpired):
		return false
	}
	return true
}
