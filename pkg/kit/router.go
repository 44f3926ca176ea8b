package kit

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Log     *zap.Logger
	Service string
	// Registry enables request metrics and the /metrics route.
	Registry     *prometheus.Registry
	MetricsToken string
}

// NewRouter returns a router with request ids, panic recovery and request
// logging installed. With a registry it also records HTTP metrics and serves
// /metrics behind BearerAuth(MetricsToken), so an unset token forbids every
// scrape. Callers add their routes to the result and must not call Use on it.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Recoverer)
	r.Use(Logging(deps.Log))

	if deps.Registry == nil {
		return r
	}

	r.Use(NewHTTPMetrics(deps.Registry, deps.Service).Middleware)
	r.With(BearerAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
	return r
}
