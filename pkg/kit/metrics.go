package kit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelMethod = "method"
	labelRoute  = "route"
	labelCode   = "code"

	// Requests chi could not route are grouped under one label value.
	unmatchedRoute = "unmatched"
)

// HTTPMetrics instruments the handlers of one service. The service name is a
// constant label, so several services can share a registry.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer, service string) *HTTPMetrics {
	constLabels := prometheus.Labels{"service": service}

	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "HTTP requests by route and status class.",
				ConstLabels: constLabels,
			},
			[]string{labelMethod, labelRoute, labelCode},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP handler latency.",
				ConstLabels: constLabels,
				Buckets:     []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{labelMethod, labelRoute},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_flight",
			Help:        "Requests currently being served, long-lived streams included.",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(m.requests, m.latency, m.inFlight)
	return m
}

// Middleware must run inside the chi router so the route pattern is known
// once the handler returns.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := routeLabel(r, ww.Status())
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(r.Method, route, statusClass(ww.Status())).Inc()
	})
}

func routeLabel(r *http.Request, status int) string {
	route := ChiRoutePatternOrPath(r)
	if status == http.StatusNotFound && route == r.URL.Path {
		return unmatchedRoute
	}
	return route
}

// statusClass folds a status code into "2xx", "4xx" and so on. A handler that
// never wrote a header reports 0 and counts as 2xx.
func statusClass(code int) string {
	if code == 0 {
		code = http.StatusOK
	}
	return strconv.Itoa(code/100) + "xx"
}
