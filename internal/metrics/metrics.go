package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docforms_api_requests_total",
			Help: "Total number of requests sent to the document backend",
		},
		[]string{"code", "method"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docforms_api_request_duration_seconds",
			Help:    "Duration of backend requests in seconds, long polls included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"code", "method"},
	)

	APIRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docforms_api_requests_in_flight",
			Help: "Number of backend requests currently in flight",
		},
	)

	JobPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docforms_job_polls_total",
			Help: "Total number of job poll responses, by reported status",
		},
		[]string{"kind", "status"},
	)

	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docforms_jobs_finished_total",
			Help: "Total number of jobs observed reaching a terminal state",
		},
		[]string{"kind", "status"},
	)

	JobsWatched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docforms_jobs_watched",
			Help: "Number of jobs currently being polled",
		},
		[]string{"kind"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docforms_http_requests_total",
			Help: "Total number of requests served by the web front end",
		},
		[]string{"code", "method"},
	)
)

// InstrumentTransport wraps next with backend request metrics.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(APIRequestsInFlight,
		promhttp.InstrumentRoundTripperCounter(APIRequestsTotal,
			promhttp.InstrumentRoundTripperDuration(APIRequestDuration, next),
		),
	)
}

// InstrumentHandler counts requests served by next.
func InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(HTTPRequestsTotal, next)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
