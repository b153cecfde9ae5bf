// Package metrics exposes viewport and HTTP activity to Prometheus.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inamate/viewport/internal/engine"
)

const namespace = "viewport"

// Metrics implements collab.Recorder on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	changes     *prometheus.CounterVec
	clamped     *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	zoom        prometheus.Histogram
	rooms       prometheus.Gauge
	reqDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "changes_total",
				Help:      "Committed viewport changes by operation.",
			},
			[]string{"operation"},
		),
		clamped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clamped_total",
				Help:      "Commits altered by constraint bounds, by operation.",
			},
			[]string{"operation"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_messages_total",
				Help:      "Room messages that failed to apply, by message type.",
			},
			[]string{"type"},
		),
		zoom: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "zoom_level",
			Help:      "Horizontal zoom after each commit.",
			Buckets:   []float64{0.125, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_open",
			Help:      "Rooms with at least one connected client.",
		}),
		reqDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}
	m.registry.MustRegister(m.changes, m.clamped, m.rejected, m.zoom, m.rooms, m.reqDuration)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveChange(ev engine.ChangeEvent) {
	op := string(ev.Operation)
	m.changes.WithLabelValues(op).Inc()
	if ev.Clamped {
		m.clamped.WithLabelValues(op).Inc()
	}
	m.zoom.Observe(ev.ZoomX)
}

func (m *Metrics) ObserveRejected(msgType string) {
	m.rejected.WithLabelValues(msgType).Inc()
}

func (m *Metrics) RoomOpened() { m.rooms.Inc() }
func (m *Metrics) RoomClosed() { m.rooms.Dec() }

// Middleware records request latency labelled by the matched mux route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		m.reqDuration.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Hijack passes websocket upgrades through.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}
