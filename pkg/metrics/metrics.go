// Package metrics defines the Prometheus collectors of the matrix service.
// All recording methods are no-ops on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors.
type Metrics struct {
	MatrixRequests *prometheus.CounterVec
	MatrixDuration prometheus.Histogram
	MatrixCells    prometheus.Histogram
	SubGraphNodes  prometheus.Histogram
	SettledEntries prometheus.Histogram
	CacheLookups   *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
	GraphNodes   prometheus.Gauge
	GraphEdges   prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MatrixRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matrix_requests_total",
			Help:      "Matrix requests by outcome code.",
		}, []string{"status"}),
		MatrixDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matrix_compute_duration_seconds",
			Help:      "Time spent computing one matrix, snapping included.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		MatrixCells: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matrix_cells",
			Help:      "Sources times destinations per request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		SubGraphNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rphast_subgraph_nodes",
			Help:      "Nodes in the target subgraph per request.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		}),
		SettledEntries: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rphast_settled_entries",
			Help:      "Entries settled by the upward search per request.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		GraphNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the loaded graph.",
		}),
		GraphEdges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges, shortcuts included, in the loaded graph.",
		}),
	}
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveMatrix records one computed matrix.
func (m *Metrics) ObserveMatrix(status string, d time.Duration, cells, subGraphNodes, settled int) {
	if m == nil {
		return
	}
	m.MatrixRequests.WithLabelValues(status).Inc()
	if status != "ok" {
		return
	}
	m.MatrixDuration.Observe(d.Seconds())
	m.MatrixCells.Observe(float64(cells))
	m.SubGraphNodes.Observe(float64(subGraphNodes))
	m.SettledEntries.Observe(float64(settled))
}

// ObserveCache records a cache lookup result.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// SetGraph records the size of the loaded graph.
func (m *Metrics) SetGraph(nodes, edges int) {
	if m == nil {
		return
	}
	m.GraphNodes.Set(float64(nodes))
	m.GraphEdges.Set(float64(edges))
}
