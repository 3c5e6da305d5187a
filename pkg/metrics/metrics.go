package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "numbers"

// Registry holds everything in this package, plus the usual process and go
// runtime collectors. It's separate from the default registry so that tests
// can gather from it without picking up anything else.
var Registry = prometheus.NewRegistry()

var (
	computeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "compute_total",
			Help:      "Count of ranges computed by this instance.",
		},
		[]string{"instance"},
	)
	computeErrCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "compute_error_total",
			Help:      "Count of compute requests rejected before computing, by gRPC code.",
		},
		[]string{"instance", "code"},
	)
	computePrimes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "compute_primes",
			Help:      "Number of primes returned per computed range.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"instance"},
	)
	computeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "compute_duration_seconds",
			Help:      "Time spent computing each range.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		},
		[]string{"instance"},
	)

	submitCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "submit_total",
			Help:      "Count of ranges submitted by the frontend, by answering instance and gRPC code.",
		},
		[]string{"instance", "code"},
	)
	submitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "submit_duration_seconds",
			Help:      "Round trip time of each submitted range, as seen by the frontend.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		},
		[]string{"instance"},
	)
	backendsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "backends",
			Help:      "Number of numbers service instances currently known to the frontend.",
		},
	)
)

var registerMetrics sync.Once

// Register all metrics. Safe to call more than once.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		Registry.MustRegister(computeCounter)
		Registry.MustRegister(computeErrCounter)
		Registry.MustRegister(computePrimes)
		Registry.MustRegister(computeDuration)
		Registry.MustRegister(submitCounter)
		Registry.MustRegister(submitDuration)
		Registry.MustRegister(backendsGauge)
	})
}

// Handler serves the contents of Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCompute records a range computed by the given instance.
func RecordCompute(instance string, primes int, d time.Duration) {
	computeCounter.WithLabelValues(instance).Inc()
	computePrimes.WithLabelValues(instance).Observe(float64(primes))
	computeDuration.WithLabelValues(instance).Observe(d.Seconds())
}

// RecordComputeError records a request which the given instance refused.
func RecordComputeError(instance, code string) {
	computeErrCounter.WithLabelValues(instance, code).Inc()
}

// RecordSubmit records a round trip from the frontend. Instance is empty when
// the call failed before anyone answered.
func RecordSubmit(instance, code string, d time.Duration) {
	submitCounter.WithLabelValues(instance, code).Inc()
	if instance != "" {
		submitDuration.WithLabelValues(instance).Observe(d.Seconds())
	}
}

// SetBackends records how many backends the frontend knows about.
func SetBackends(n int) {
	backendsGauge.Set(float64(n))
}
