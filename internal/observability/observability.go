// Package observability holds the Prometheus metrics for the service and the
// upload pipeline.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statementdesk_http_requests_total",
		Help: "HTTP requests served, by method and status class.",
	}, []string{"method", "status"})

	filesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statementdesk_files_processed_total",
		Help: "Statement files submitted to the extraction service, by outcome.",
	}, []string{"outcome"})

	rulesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statementdesk_rules_applied_total",
		Help: "Transactions whose category was overridden by a rule.",
	})
)

// FileProcessed records one file leaving the upload loop.
func FileProcessed(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	filesProcessed.WithLabelValues(outcome).Inc()
}

// RulesApplied records rule-engine overrides from one apply-rules call.
func RulesApplied(n int) {
	rulesApplied.Add(float64(n))
}

// HTTPRequest records one served request.
func HTTPRequest(method string, status int) {
	httpRequests.WithLabelValues(method, statusClass(status)).Inc()
}

// statusClass buckets a status code by its hundreds digit, so 1xx responses
// are not misfiled under 2xx.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
