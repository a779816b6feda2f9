package fsbridge

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	retryReasonTransient = "transient"
	retryReasonThrottled = "throttled"
)

// Metrics records per-attempt request outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the client's collectors with reg. It returns nil when
// reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fsbridge_requests_total",
			Help: "Total number of request attempts sent to FamilySearch",
		}, []string{"method", "status"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fsbridge_retries_total",
			Help: "Total number of retries, by reason",
		}, []string{"reason"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fsbridge_request_duration_seconds",
			Help:    "Duration of a single request attempt in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method"}),
	}
}

func (m *Metrics) observeAttempt(method string, resp *NormalizedResponse, err error, took time.Duration) {
	if m == nil {
		return
	}
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	m.requests.WithLabelValues(method, status).Inc()
	m.duration.WithLabelValues(method).Observe(took.Seconds())
}

func (m *Metrics) observeRetry(reason string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(reason).Inc()
}
