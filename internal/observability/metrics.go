// Package observability collects Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and the application metrics.
// A nil *Metrics disables collection everywhere it is passed.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	documentsCreated *prometheus.CounterVec
	conversionsTotal *prometheus.CounterVec
	paymentsRecorded prometheus.Counter
	receiptsIssued   prometheus.Counter
}

// NewMetrics initializes the registry and the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerkit_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledgerkit_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	documentsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerkit_documents_created_total",
		Help: "Documents created, by document type.",
	}, []string{"type"})
	conversions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerkit_conversions_total",
		Help: "Document conversions, by source and target type.",
	}, []string{"source", "target"})
	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledgerkit_payments_recorded_total",
		Help: "Payment records written, reversals included.",
	})
	receipts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledgerkit_receipts_issued_total",
		Help: "Receipt documents generated.",
	})
	registry.MustRegister(requests, duration, documentsCreated, conversions, payments, receipts)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		documentsCreated: documentsCreated,
		conversionsTotal: conversions,
		paymentsRecorded: payments,
		receiptsIssued:   receipts,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
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

// DocumentCreated counts one created document of the given type.
func (m *Metrics) DocumentCreated(docType string) {
	if m == nil {
		return
	}
	m.documentsCreated.WithLabelValues(docType).Inc()
}

// ConversionPerformed counts one document conversion.
func (m *Metrics) ConversionPerformed(source, target string) {
	if m == nil {
		return
	}
	m.conversionsTotal.WithLabelValues(source, target).Inc()
}

// PaymentRecorded counts one ledger write.
func (m *Metrics) PaymentRecorded() {
	if m == nil {
		return
	}
	m.paymentsRecorded.Inc()
}

// ReceiptIssued counts one generated receipt document.
func (m *Metrics) ReceiptIssued() {
	if m == nil {
		return
	}
	m.receiptsIssued.Inc()
}

// Registerer exposes the registry for custom metric registration.
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
