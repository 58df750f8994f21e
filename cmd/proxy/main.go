// Command proxy runs the authenticating reverse proxy in front of a Nexus
// repository manager. Startup is strictly ordered: the token store comes up
// first, then the credential bridge, and only then does the router bind the
// listening socket.
package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/zanclus/nexus-auth-proxy/internal/dispatch"
	"github.com/zanclus/nexus-auth-proxy/internal/gateway"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/config"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/httpserver"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/logger"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/metrics"
	"github.com/zanclus/nexus-auth-proxy/internal/platform/middleware"
	platformredis "github.com/zanclus/nexus-auth-proxy/internal/platform/redis"
	"github.com/zanclus/nexus-auth-proxy/internal/session"
	tokenservice "github.com/zanclus/nexus-auth-proxy/internal/token/service"
	tokenstore "github.com/zanclus/nexus-auth-proxy/internal/token/store"
	"github.com/zanclus/nexus-auth-proxy/internal/upstream"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	middleware.SetTracePropagator()

	ctx := context.Background()

	// Token store first: nothing routes without it.
	db, err := tokenstore.Open(cfg.PostgresDSN, cfg.MinDBConns, cfg.MaxDBConns)
	if err != nil {
		log.Error("failed to open token store", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("token store unreachable", "error", err.Error())
		os.Exit(1)
	}
	store := tokenstore.NewPostgres(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure token schema", "error", err.Error())
		os.Exit(1)
	}
	tokens := tokenservice.New(store, log)

	// One keep-alive transport serves both the credential bridge and the
	// streaming proxy.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	httpClient := &http.Client{Transport: transport}
	bridge := upstream.NewBridge(httpClient, cfg.TargetURL(), log)

	// Session backend: redis when configured, process memory otherwise.
	var sessionStore session.Store
	health := map[string]func(context.Context) error{
		"token_store": db.PingContext,
	}
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient.Client)
		health["sessions"] = redisClient.Health
		log.Info("using redis session store")
	} else {
		sessionStore = session.NewMemoryStore()
		log.Info("using in-memory session store")
	}

	m := metrics.New()
	pool := dispatch.NewPool(cfg.Workers, log)
	backend := gateway.NewBackend(pool, tokens, bridge)
	sessions := gateway.NewSessionManager(sessionStore, cfg.SessionCookie, cfg.SessionTTL, log)
	handler := gateway.NewHandler(backend, sessions, m, log, health)

	targetURL, err := url.Parse(cfg.TargetURL())
	if err != nil {
		log.Error("invalid target URL", "error", err.Error())
		os.Exit(1)
	}
	proxy := gateway.NewProxy(targetURL, transport, backend, cfg.IdentityHeader, m, log)

	router := gateway.NewRouter(handler, proxy, cfg.ProxyPrefix, m, log)
	srv := httpserver.New(cfg.ListenAddr(), router)

	log.Info("starting nexus-auth-proxy",
		"listen", cfg.ListenAddr(),
		"target", cfg.TargetAddr(),
		"identity_header", cfg.IdentityHeader,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}
