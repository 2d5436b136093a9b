package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	adsFetchedTotal   *prometheus.CounterVec
	fetchJobsTotal    *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	calcDuration      *prometheus.HistogramVec
	httpRequestsTotal *prometheus.CounterVec
)

// InitPrometheusMetrics registers all service metrics. Call once at
// startup before any worker or handler runs.
func InitPrometheusMetrics() {
	adsFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adscope",
			Name:      "ads_fetched_total",
			Help:      "Total number of ads fetched from upstream platforms.",
		},
		[]string{"platform"},
	)
	fetchJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adscope",
			Name:      "fetch_jobs_total",
			Help:      "Total number of competitor fetch jobs by terminal status.",
		},
		[]string{"status"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adscope",
			Name:      "fetch_duration_seconds",
			Help:      "Histogram of full competitor fetch durations in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)
	calcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adscope",
			Name:      "calculation_duration_seconds",
			Help:      "Histogram of analytics calculation durations in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"calculator"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adscope",
			Name:      "http_requests_total",
			Help:      "Total number of API requests served.",
		},
		[]string{"route", "method", "status"},
	)
	prometheus.MustRegister(adsFetchedTotal, fetchJobsTotal, fetchDuration, calcDuration, httpRequestsTotal)
}

// ObserveAdsFetched records ads returned by one platform during a fetch.
func ObserveAdsFetched(platform string, n int) {
	if adsFetchedTotal != nil {
		adsFetchedTotal.WithLabelValues(platform).Add(float64(n))
	}
}

// ObserveFetchJob records a terminal fetch job and its duration.
func ObserveFetchJob(status string, elapsed time.Duration) {
	if fetchJobsTotal != nil {
		fetchJobsTotal.WithLabelValues(status).Inc()
		fetchDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	}
}

// ObserveCalculation records one analytics calculation run.
func ObserveCalculation(calculator string, elapsed time.Duration) {
	if calcDuration != nil {
		calcDuration.WithLabelValues(calculator).Observe(elapsed.Seconds())
	}
}

// ObserveHTTPRequest records one served API request.
func ObserveHTTPRequest(route, method string, status int) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	}
}
