package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry holds the Prometheus collectors for the process.
type Telemetry struct {
	registry *prometheus.Registry

	// EvaluationsTotal counts solution evaluations by verdict
	// ("objective" or "penalty").
	EvaluationsTotal *prometheus.CounterVec

	// SolutionsGenerated counts random solutions produced.
	SolutionsGenerated prometheus.Counter

	// CatalogKeysScanned counts keys seen during catalog scans.
	CatalogKeysScanned prometheus.Counter

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes request latency by route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// Exporter serves the Prometheus registry over HTTP.
type Exporter struct {
	handler http.Handler
}

// Handler returns the /metrics HTTP handler.
func (e *Exporter) Handler() http.Handler {
	return e.handler
}

// Package-level telemetry state. Nil until InitTelemetry runs; callers
// must tolerate nil so metrics stay optional (serve honors
// metrics.enabled=false by never initializing).
var (
	TelemetrySystem    *Telemetry
	PrometheusExporter *Exporter
)

// InitTelemetry builds the process registry and exporter.
func InitTelemetry() error {
	registry := prometheus.NewRegistry()

	t := &Telemetry{
		registry: registry,
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openshop",
			Name:      "evaluations_total",
			Help:      "Solution evaluations by verdict.",
		}, []string{"verdict"}),
		SolutionsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "openshop",
			Name:      "solutions_generated_total",
			Help:      "Random solutions generated.",
		}),
		CatalogKeysScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "openshop",
			Name:      "catalog_keys_scanned_total",
			Help:      "Keys seen during catalog scans.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openshop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route, and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "openshop",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	for _, c := range []prometheus.Collector{
		t.EvaluationsTotal,
		t.SolutionsGenerated,
		t.CatalogKeysScanned,
		t.HTTPRequestsTotal,
		t.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}

	TelemetrySystem = t
	PrometheusExporter = &Exporter{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	return nil
}
