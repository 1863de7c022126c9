// Package metrics exposes Prometheus collectors for HTTP requests, pipeline
// runs, collaborator calls, and document indexing.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_runs_total",
		Help: "Pipeline runs by category, handler, and success",
	}, []string{"category", "handler", "success"})

	runLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_run_latency_ms",
		Help:    "End-to-end pipeline run latency in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000},
	}, []string{"handler"})

	callLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_collaborator_latency_ms",
		Help:    "Latency of collaborator calls in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"collaborator", "outcome"})

	httpRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and status code",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "code"})

	passagesIndexed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_passages_indexed_total",
		Help: "Passages written to the document index",
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(runsTotal, runLatency, callLatency, httpRequests, passagesIndexed)
	})
}

// ObserveRun records the outcome and latency of a completed pipeline run.
func ObserveRun(category, handler string, success bool, start time.Time) {
	ensureRegistered()
	runsTotal.WithLabelValues(category, handler, strconv.FormatBool(success)).Inc()
	runLatency.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
}

// ObserveCall records the latency of a collaborator call such as a weather
// lookup, a retrieval, or an inference request.
func ObserveCall(collaborator string, start time.Time, err error) {
	ensureRegistered()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	callLatency.WithLabelValues(collaborator, outcome).Observe(float64(time.Since(start).Milliseconds()))
}

// ObserveRequest records a served HTTP request. Route is the matched mux
// pattern; unmatched requests are grouped under "unmatched".
func ObserveRequest(method, route string, code int, start time.Time) {
	ensureRegistered()
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Observe(time.Since(start).Seconds())
}

// AddIndexed increments the indexed passage counter.
func AddIndexed(n int) {
	ensureRegistered()
	if n > 0 {
		passagesIndexed.Add(float64(n))
	}
}

// Handler returns the Prometheus scrape handler for the default registry.
func Handler() http.Handler {
	ensureRegistered()
	return promhttp.Handler()
}
