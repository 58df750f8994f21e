package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zanclus/nexus-auth-proxy/internal/platform/metrics"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/middleware"
)

// APIPrefix is where the token-management API lives; the rest of the path
// space under ProxyPrefix belongs to the upstream.
const APIPrefix = "/nexus-proxy/api"

// NewRouter wires the API, the streaming proxy, and the operational
// endpoints onto one chi router.
func NewRouter(
	handler *Handler,
	proxy *Proxy,
	proxyPrefix string,
	m *metrics.Metrics,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.TracePropagation)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	r.Route(APIPrefix, handler.Register)

	r.Get("/healthz", handler.handleHealth)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Every method under the proxy prefix forwards to the upstream.
	r.Handle(proxyPrefix, proxy)
	r.Handle(proxyPrefix+"/*", proxy)

	return r
}
