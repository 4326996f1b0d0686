package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tendant/portfolio-content/pkg/portfolio"
)

const namespace = "portfolio"

// Recorder implements portfolio.Metrics with Prometheus counters and also
// provides request metrics middleware for the HTTP server.
type Recorder struct {
	blobsStored     *prometheus.CounterVec
	uploadsRejected *prometheus.CounterVec
	orphansDeleted  *prometheus.CounterVec

	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		blobsStored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assets",
				Name:      "stored_total",
				Help:      "Number of uploaded files written to a storage backend",
			},
			[]string{"backend"},
		),
		uploadsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assets",
				Name:      "rejected_total",
				Help:      "Number of uploads rejected before storage",
			},
			[]string{"field", "reason"},
		),
		orphansDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assets",
				Name:      "orphan_deletions_total",
				Help:      "Number of orphaned asset deletions by outcome",
			},
			[]string{"backend", "outcome"},
		),
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		),
	}
}

func (r *Recorder) BlobStored(backend portfolio.BackendKind) {
	r.blobsStored.WithLabelValues(string(backend)).Inc()
}

func (r *Recorder) UploadRejected(field, reason string) {
	r.uploadsRejected.WithLabelValues(field, reason).Inc()
}

func (r *Recorder) OrphanDeleted(backend portfolio.BackendKind, outcome string) {
	r.orphansDeleted.WithLabelValues(string(backend), outcome).Inc()
}

// Middleware counts requests by chi route pattern
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.requestCounter.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
		r.requestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}

var _ portfolio.Metrics = (*Recorder)(nil)
