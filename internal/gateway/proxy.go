package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/zanclus/nexus-auth-proxy/internal/dispatch"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/metrics"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/middleware"
)

// Proxy streams requests through to the upstream repository manager. Bodies
// are pumped, never buffered: the reverse proxy copies between the two
// connections with flow control, flushes immediately (FlushInterval -1), and
// aborts the upstream call when the client goes away via request context
// cancellation.
type Proxy struct {
	reverse        *httputil.ReverseProxy
	backend        *Backend
	identityHeader string
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// NewProxy builds the streaming proxy for target (scheme://host:port).
// The transport is shared with the credential bridge so both reuse one
// keep-alive connection pool per target.
func NewProxy(
	target *url.URL,
	transport http.RoundTripper,
	backend *Backend,
	identityHeader string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Proxy {
	reverse := httputil.NewSingleHostReverseProxy(target)
	reverse.FlushInterval = -1
	reverse.Transport = transport

	originalDirector := reverse.Director
	reverse.Director = func(req *http.Request) {
		originalDirector(req)
		// The upstream sees its own host, not the gateway's.
		req.Host = target.Host
		otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	}

	p := &Proxy{
		reverse:        reverse,
		backend:        backend,
		identityHeader: identityHeader,
		logger:         logger,
		metrics:        m,
	}

	reverse.ModifyResponse = func(resp *http.Response) error {
		m.ProxiedRequests.WithLabelValues(resp.Request.Method, strconv.Itoa(resp.StatusCode)).Inc()
		return nil
	}
	reverse.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, context.Canceled) {
			// Client went away mid-stream; the upstream call was aborted.
			return
		}
		logger.ErrorContext(r.Context(), "upstream proxy error",
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		m.ProxiedRequests.WithLabelValues(r.Method, "error").Inc()
		w.WriteHeader(http.StatusBadGateway)
	}

	return p
}

// ServeHTTP resolves the caller's identity and forwards the request.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// If some nefarious party tried to pass their own identity header,
	// remove it before anything else happens.
	r.Header.Del(p.identityHeader)

	// Bearer token auth is honored for GET requests only.
	if r.Method == http.MethodGet {
		if credential, ok := bearerCredential(r.Header.Get("Authorization")); ok {
			username, err := dispatch.Await(r.Context(), p.backend.ValidateToken(r.Context(), credential))
			if err != nil {
				// An invalid token never fails the proxy request; the
				// request goes through anonymously and the upstream makes
				// the final access decision.
				p.metrics.TokenValidations.WithLabelValues("invalid").Inc()
				p.logger.WarnContext(r.Context(), "bearer token rejected",
					"request_id", middleware.GetRequestID(r.Context()),
					"error", err.Error(),
				)
			} else {
				p.metrics.TokenValidations.WithLabelValues("valid").Inc()
				r.Header.Set(p.identityHeader, username)
			}
		}
	}

	p.reverse.ServeHTTP(w, r)
}

// bearerCredential extracts the credential from an Authorization header with
// a case-insensitive "bearer" scheme.
func bearerCredential(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	credential := strings.TrimSpace(parts[1])
	if credential == "" {
		return "", false
	}
	return credential, true
}
