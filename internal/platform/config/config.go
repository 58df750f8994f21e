// Package config builds the gateway configuration from the environment with
// the same defaults the original deployment shipped with, so a bare start
// proxies 127.0.0.1:8080 -> 127.0.0.1:8081.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures every recognized option for the proxy process.
type Config struct {
	// ProxyHost/ProxyPort is the address the gateway listens on.
	ProxyHost string
	ProxyPort int

	// TargetHost/TargetPort is the upstream repository manager.
	TargetHost string
	TargetPort int

	// IdentityHeader is the trusted-identity header set on forwarded
	// requests. Inbound values are always stripped.
	IdentityHeader string

	// ProxyPrefix is the path prefix forwarded to the upstream.
	ProxyPrefix string

	// PostgresDSN is the token store backend connection string.
	PostgresDSN string

	// MinDBConns/MaxDBConns bound the backend connection pool.
	MinDBConns int
	MaxDBConns int

	// Redis holds the optional session backend configuration. When the
	// URL is empty, sessions are kept in process memory.
	Redis RedisConfig

	// SessionCookie names the browser session cookie.
	SessionCookie string

	// SessionTTL bounds how long an idle session survives.
	SessionTTL time.Duration

	// Workers bounds the pool that runs blocking store and upstream calls.
	Workers int
}

// RedisConfig carries connection settings for the optional Redis session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ListenAddr returns the host:port the gateway binds.
func (c Config) ListenAddr() string {
	return c.ProxyHost + ":" + strconv.Itoa(c.ProxyPort)
}

// TargetAddr returns the upstream host:port.
func (c Config) TargetAddr() string {
	return c.TargetHost + ":" + strconv.Itoa(c.TargetPort)
}

// TargetURL returns the upstream base URL.
func (c Config) TargetURL() string {
	return "http://" + c.TargetAddr()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		ProxyHost:      envString("NEXUS_PROXY_HOST", "127.0.0.1"),
		ProxyPort:      envInt("NEXUS_PROXY_PORT", 8080),
		TargetHost:     envString("NEXUS_PROXY_TARGET_HOST", "127.0.0.1"),
		TargetPort:     envInt("NEXUS_PROXY_TARGET_PORT", 8081),
		IdentityHeader: envString("NEXUS_PROXY_RUT_HEADER", "REMOTE_USER"),
		ProxyPrefix:    envString("NEXUS_PROXY_PREFIX", "/nexus"),
		PostgresDSN:    envString("NEXUS_PROXY_DB_DSN", "postgres://localhost/nexus_tokens?sslmode=disable"),
		MinDBConns:     envInt("NEXUS_PROXY_DB_MIN_CONNS", 2),
		MaxDBConns:     envInt("NEXUS_PROXY_DB_MAX_CONNS", 10),
		Redis: RedisConfig{
			URL:          envString("NEXUS_PROXY_REDIS_URL", ""),
			PoolSize:     envInt("NEXUS_PROXY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("NEXUS_PROXY_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("NEXUS_PROXY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("NEXUS_PROXY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("NEXUS_PROXY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		SessionCookie: envString("NEXUS_PROXY_SESSION_COOKIE", "nexus_proxy_session"),
		SessionTTL:    envDuration("NEXUS_PROXY_SESSION_TTL", 30*time.Minute),
		Workers:       envInt("NEXUS_PROXY_WORKERS", 20),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
