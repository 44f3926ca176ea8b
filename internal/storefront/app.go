package storefront

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Storefront/internal/datasync"
	"Storefront/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	// MetricsToken guards /metrics; without it every scrape is refused.
	MetricsToken string

	// RateLimit requests per RateWindow per client IP on /api; 0 disables.
	RateLimit  int
	RateWindow time.Duration
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := kit.NewRouter(kit.RouterDeps{
		Log:          deps.Log,
		Service:      deps.Service,
		Registry:     deps.Registry,
		MetricsToken: deps.MetricsToken,
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if st := s.Sync.State(); st != datasync.Steady {
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", map[string]any{"state": st.String()})
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	api := s.Routes()
	if deps.RateLimit > 0 {
		window := deps.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		api = kit.NewIPRateLimiter(deps.RateLimit, window).Middleware(api)
	}
	r.Mount("/api", api)

	return r
}
