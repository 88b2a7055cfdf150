package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webdesk"

// Metrics holds all Prometheus collectors. It implements session.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	Sessions prometheus.Gauge

	// Window metrics
	WindowsOpened *prometheus.CounterVec
	WindowsClosed *prometheus.CounterVec
	Raises        prometheus.Counter
	Drags         prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	InputEvents   *prometheus.CounterVec
}

// New creates collectors registered on a private registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),

		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of mounted desktops",
		}),

		WindowsOpened: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "windows_opened_total",
				Help:      "Windows shown, by application id",
			},
			[]string{"app"},
		),
		WindowsClosed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "windows_closed_total",
				Help:      "Windows hidden, by application id",
			},
			[]string{"app"},
		),
		Raises: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_raises_total",
			Help:      "Stacking values handed out",
		}),
		Drags: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_drags_total",
			Help:      "Drags started",
		}),

		WSConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open scene streams",
		}),
		InputEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "input_events_total",
				Help:      "Input events applied, by type",
			},
			[]string{"type"},
		),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) WindowOpened(id desktop.AppID) {
	m.WindowsOpened.WithLabelValues(strconv.Itoa(int(id))).Inc()
}

func (m *Metrics) WindowClosed(id desktop.AppID) {
	m.WindowsClosed.WithLabelValues(strconv.Itoa(int(id))).Inc()
}

func (m *Metrics) WindowRaised(desktop.AppID) {
	m.Raises.Inc()
}

func (m *Metrics) DragStarted(desktop.AppID) {
	m.Drags.Inc()
}

func (m *Metrics) SessionsActive(n int) {
	m.Sessions.Set(float64(n))
}

// RecordInput counts one applied input event
func (m *Metrics) RecordInput(kind string) {
	m.InputEvents.WithLabelValues(kind).Inc()
}

// StreamOpened and StreamClosed track websocket connections
func (m *Metrics) StreamOpened() { m.WSConnections.Inc() }
func (m *Metrics) StreamClosed() { m.WSConnections.Dec() }

// Middleware records request counts and durations keyed by the matched route
// template, so session ids do not explode the label space.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Flush keeps streaming responses working through the middleware
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is required by the websocket upgrade
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
