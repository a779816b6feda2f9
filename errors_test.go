package fsbridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestResponseError(t *testing.T) {
	err := &ResponseError{
		Method:     "GET",
		Endpoint:   "https://api.familysearch.org/platform/tree/persons/X",
		StatusCode: 404,
		Body:       []byte("{\n\"errors\":[]}"),
	}
	assert.Equal(t, `GET https://api.familysearch.org/platform/tree/persons/X returned 404 Not Found: {"errors":[]}`, err.Error())

	long := &ResponseError{Method: "GET", Endpoint: "/x", StatusCode: 500, Body: []byte(strings.Repeat("a", 400))}
	assert.True(t, strings.HasSuffix(long.Error(), strings.Repeat("a", 256)+"..."))

	runes := &ResponseError{Method: "GET", Endpoint: "/x", StatusCode: 500, Body: []byte(strings.Repeat("€", 120))}
	msg := runes.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, strings.Repeat("€", 85)+"..."))

	resp := err.Response()
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, err.Body, resp.Data)
}

func TestStatusCodeAndThrottled(t *testing.T) {
	throttled := fmt.Errorf("%w after 4 attempts: %w", ErrRetryBudgetExhausted, &ResponseError{StatusCode: 429})

	assert.Equal(t, 429, StatusCode(throttled))
	assert.True(t, IsThrottled(throttled))
	assert.Zero(t, StatusCode(errors.New("plain")))
	assert.False(t, IsThrottled(nil))
}

func TestIsTransient(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errConnReset, true},
		{"server error", &ResponseError{StatusCode: 502}, true},
		{"wrapped server error", fmt.Errorf("fetching: %w", &ResponseError{StatusCode: 500}), true},
		{"client error", &ResponseError{StatusCode: 404}, false},
		{"throttled", &ResponseError{StatusCode: 429}, false},
		{"decode", &DecodeError{Err: errors.New("bad json")}, false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), false},
		{"token missing", ErrAccessTokenMissing, false},
		{"token expired", ErrAccessTokenExpired, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}
