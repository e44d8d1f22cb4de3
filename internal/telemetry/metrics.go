package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsStarted      = prometheus.NewCounter(prometheus.CounterOpts{Name: "vacancy_jobs_started_total", Help: "Vacancy jobs submitted"})
	JobsSucceeded    = prometheus.NewCounter(prometheus.CounterOpts{Name: "vacancy_jobs_succeeded_total", Help: "Vacancy jobs completed successfully"})
	JobsFailed       = prometheus.NewCounter(prometheus.CounterOpts{Name: "vacancy_jobs_failed_total", Help: "Vacancy jobs ending in error"})
	JobsRunning      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "vacancy_jobs_running", Help: "Pipelines currently executing"})
	SourceRequests   = prometheus.NewCounter(prometheus.CounterOpts{Name: "vacancy_source_requests_total", Help: "Requests issued against the HR source"})
	SourceErrors     = prometheus.NewCounter(prometheus.CounterOpts{Name: "vacancy_source_errors_total", Help: "Failed requests against the HR source"})
	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{Name: "vacancy_rate_limit_rejects_total", Help: "Submissions rejected by the rate limiter"})
	ReportsExported  = prometheus.NewCounter(prometheus.CounterOpts{Name: "vacancy_reports_exported_total", Help: "Finished reports uploaded to object storage"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsStarted,
			JobsSucceeded,
			JobsFailed,
			JobsRunning,
			SourceRequests,
			SourceErrors,
			RateLimitRejects,
			ReportsExported,
		)
	})
	return promhttp.Handler()
}
