// Package metrics exposes Prometheus instrumentation for analysis runs.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	// Analyzer metrics
	AnalyzerRunsTotal *prometheus.CounterVec
	AnalyzerDuration  *prometheus.HistogramVec

	// Pipeline metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	MessagesAnalyzed prometheus.Counter

	// Remote backend metrics
	RemoteRequestsTotal *prometheus.CounterVec
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		AnalyzerRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatlytics_analyzer_runs_total",
				Help: "Total analyzer invocations by analyzer and status",
			},
			[]string{"analyzer", "status"},
		)

		AnalyzerDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatlytics_analyzer_duration_seconds",
				Help:    "Time spent inside each analyzer",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"analyzer"},
		)

		AnalysesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatlytics_analyses_total",
				Help: "Total conversation analyses by outcome",
			},
			[]string{"status"},
		)

		AnalysisDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatlytics_analysis_duration_seconds",
				Help:    "End to end analysis wall clock time",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		)

		MessagesAnalyzed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatlytics_messages_analyzed_total",
				Help: "Total messages run through the pipeline",
			},
		)

		RemoteRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatlytics_remote_requests_total",
				Help: "Remote completion requests by task and status",
			},
			[]string{"task", "status"},
		)

		registry.MustRegister(
			AnalyzerRunsTotal,
			AnalyzerDuration,
			AnalysesTotal,
			AnalysisDuration,
			MessagesAnalyzed,
			RemoteRequestsTotal,
		)

		logger.Debug("Metrics initialized")
	})
}

// GetRegistry returns the metrics registry
func GetRegistry() *prometheus.Registry {
	return registry
}

// RegisterHandler registers the metrics HTTP handler
func RegisterHandler(mux *http.ServeMux) {
	if registry == nil {
		return
	}
	handler := promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
	mux.Handle("/metrics", handler)
}

// RecordAnalyzerRun records one analyzer invocation outcome
func RecordAnalyzerRun(analyzer, status string) {
	if AnalyzerRunsTotal != nil {
		AnalyzerRunsTotal.WithLabelValues(analyzer, status).Inc()
	}
}

// ObserveAnalyzer returns a completion callback that records the analyzer's
// elapsed time
func ObserveAnalyzer(analyzer string) func() {
	if AnalyzerDuration == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		AnalyzerDuration.WithLabelValues(analyzer).Observe(time.Since(start).Seconds())
	}
}

// RecordAnalysis records one completed pipeline run
func RecordAnalysis(status string, messages int, elapsed time.Duration) {
	if AnalysesTotal == nil {
		return
	}
	AnalysesTotal.WithLabelValues(status).Inc()
	AnalysisDuration.Observe(elapsed.Seconds())
	MessagesAnalyzed.Add(float64(messages))
}

// RecordRemoteRequest records one remote completion request outcome
func RecordRemoteRequest(task, status string) {
	if RemoteRequestsTotal != nil {
		RemoteRequestsTotal.WithLabelValues(task, status).Inc()
	}
}
