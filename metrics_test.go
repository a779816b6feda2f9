package fsbridge

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	m := NewMetrics(nil)
	assert.Nil(t, m)
	assert.NotPanics(t, func() {
		m.observeAttempt("GET", nil, errConnReset, time.Millisecond)
		m.observeRetry(retryReasonTransient)
	})
}

func TestMetrics_RecordsAttemptsAndRetries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	re, _ := newTestExecutor(t, testRetryConfig())
	re.metrics = m

	op, _ := scripted(
		outcome{err: errConnReset},
		outcome{status: 429},
		outcome{status: 503},
		outcome{status: 200, body: `{}`},
	)
	_, err := re.ExecuteWithRetry(context.Background(), &NormalizedRequest{Method: "GET", Endpoint: "/x"}, op)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "429")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.retries.WithLabelValues(retryReasonTransient)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries.WithLabelValues(retryReasonThrottled)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration, "fsbridge_request_duration_seconds"))
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
