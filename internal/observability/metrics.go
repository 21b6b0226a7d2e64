package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	documentsCreated *prometheus.CounterVec
	linesDropped     *prometheus.CounterVec
	substitutions    *prometheus.CounterVec
	referenceRetries prometheus.Counter
	reversals        *prometheus.CounterVec
	negativeStock    prometheus.Counter
	txFailures       *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	m := &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		documentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_documents_created_total",
			Help: "Documents committed, by kind.",
		}, []string{"kind"}),
		linesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_document_lines_dropped_total",
			Help: "Proposal lines dropped for unknown products, by kind.",
		}, []string{"kind"}),
		substitutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_counterparty_substitutions_total",
			Help: "Documents saved against the fallback counterparty, by kind.",
		}, []string{"kind"}),
		referenceRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odyssey_reference_retries_total",
			Help: "Reference collisions that forced a retry.",
		}),
		reversals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_document_reversals_total",
			Help: "Stock reversals applied, by kind and target status.",
		}, []string{"kind", "status"}),
		negativeStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odyssey_stock_negative_total",
			Help: "Ledger adjustments that left a product below zero.",
		}),
		txFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_tx_failures_total",
			Help: "Rolled back fulfillment transactions, by operation.",
		}, []string{"operation"}),
	}
	registry.MustRegister(requests, duration,
		m.documentsCreated, m.linesDropped, m.substitutions, m.referenceRetries,
		m.reversals, m.negativeStock, m.txFailures)
	return m
}

// DocumentCreated mencatat dokumen yang berhasil disimpan.
func (m *Metrics) DocumentCreated(kind string, dropped int, substituted bool) {
	if m == nil {
		return
	}
	m.documentsCreated.WithLabelValues(kind).Inc()
	if dropped > 0 {
		m.linesDropped.WithLabelValues(kind).Add(float64(dropped))
	}
	if substituted {
		m.substitutions.WithLabelValues(kind).Inc()
	}
}

// ReferenceRetry mencatat tabrakan nomor referensi.
func (m *Metrics) ReferenceRetry() {
	if m == nil {
		return
	}
	m.referenceRetries.Inc()
}

// Reversal mencatat pembalikan stok.
func (m *Metrics) Reversal(kind, status string) {
	if m == nil {
		return
	}
	m.reversals.WithLabelValues(kind, status).Inc()
}

// NegativeStock mencatat stok yang menjadi negatif.
func (m *Metrics) NegativeStock(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.negativeStock.Add(float64(count))
}

// TxFailed mencatat transaksi yang dibatalkan.
func (m *Metrics) TxFailed(operation string) {
	if m == nil {
		return
	}
	m.txFailures.WithLabelValues(operation).Inc()
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
