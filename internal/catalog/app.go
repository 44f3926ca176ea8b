package catalog

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

const defaultService = "catalog"

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry
	// MetricsToken guards /metrics; without it every scrape is refused.
	MetricsToken string
}

// NewHandler serves the catalog documents from the root of the router.
func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Service == "" {
		deps.Service = defaultService
	}

	r := kit.NewRouter(kit.RouterDeps{
		Log:          deps.Log,
		Service:      deps.Service,
		Registry:     deps.Registry,
		MetricsToken: deps.MetricsToken,
	})
	r.Mount("/", s.Routes())
	return r
}
