package mock

import (
	"context"
	"errors"
	"net/http"
	"sync"

	fsbridge "github.com/opengovern/familysearch-bridge"
)

// ErrNetwork is a canned network-level failure.
var ErrNetwork = errors.New("mock: connection reset by peer")

// Step is one scripted transport outcome: either a response or an error.
type Step struct {
	Response *fsbridge.NormalizedResponse
	Err      error
}

// Status returns a step answering with code and body.
func Status(code int, body string) Step {
	return Step{Response: &fsbridge.NormalizedResponse{
		StatusCode: code,
		Headers:    map[string]string{"content-type": fsbridge.MediaTypeFamilySearch},
		Data:       []byte(body),
	}}
}

// OK returns a 200 step with body.
func OK(body string) Step { return Status(http.StatusOK, body) }

// Throttled returns a 429 step. A non-empty retryAfter sets the Retry-After header.
func Throttled(retryAfter string) Step {
	s := Status(http.StatusTooManyRequests, `{"errors":[{"code":429,"message":"Too Many Requests"}]}`)
	if retryAfter != "" {
		s.Response.Headers["retry-after"] = retryAfter
	}
	return s
}

// NetworkError returns a step failing with ErrNetwork.
func NetworkError() Step { return Step{Err: ErrNetwork} }

// MockAdapter replays scripted steps in order and records every request it
// receives. Once the script is exhausted the last step repeats. It is safe
// for concurrent use.
type MockAdapter struct {
	mu       sync.Mutex
	steps    []Step
	requests []*fsbridge.NormalizedRequest
}

func NewMockAdapter(steps ...Step) *MockAdapter {
	return &MockAdapter{steps: steps}
}

func (m *MockAdapter) ExecuteRequest(ctx context.Context, req *fsbridge.NormalizedRequest) (*fsbridge.NormalizedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.steps) == 0 {
		return OK(`{}`).Response, nil
	}

	idx := len(m.requests) - 1
	if idx >= len(m.steps) {
		idx = len(m.steps) - 1
	}
	step := m.steps[idx]
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Calls returns how many requests were received.
func (m *MockAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the received requests in order.
func (m *MockAdapter) Requests() []*fsbridge.NormalizedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*fsbridge.NormalizedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
