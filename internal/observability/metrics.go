package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingestion outcomes used as the "result" label.
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultError     = "error"
)

type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	readingsTotal     *prometheus.CounterVec
	deltasTotal       prometheus.Counter
	publishErrors     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		readingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridmeter_readings_total",
			Help: "Raw readings received, by ingestion result.",
		}, []string{"result"}),
		deltasTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridmeter_hourly_deltas_total",
			Help: "Hourly delta rows written by the apportionment engine.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridmeter_publish_errors_total",
			Help: "Failed hourly delta exports.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.readingsTotal,
		m.deltasTotal,
		m.publishErrors,
	)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ReadingRecorded counts one ingestion and the deltas it produced.
func (m *Metrics) ReadingRecorded(result string, deltas int) {
	if m == nil {
		return
	}
	m.readingsTotal.WithLabelValues(result).Inc()
	m.deltasTotal.Add(float64(deltas))
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}
