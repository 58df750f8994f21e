package gateway

import (
	"context"

	"github.com/zanclus/nexus-auth-proxy/internal/dispatch"
	"github.com/zanclus/nexus-auth-proxy/internal/token"
	tokenservice "github.com/zanclus/nexus-auth-proxy/internal/token/service"
	"github.com/zanclus/nexus-auth-proxy/internal/upstream"
)

// Backend is the gateway's typed request/reply client for the token store
// and the credential bridge. Every call runs on the bounded dispatch pool;
// the serving goroutine selects on the returned channel and is never blocked
// by backend latency. One method per message kind.
type Backend struct {
	pool   *dispatch.Pool
	tokens *tokenservice.Service
	bridge *upstream.Bridge
}

// NewBackend wires the dispatch pool to the backing services.
func NewBackend(pool *dispatch.Pool, tokens *tokenservice.Service, bridge *upstream.Bridge) *Backend {
	return &Backend{pool: pool, tokens: tokens, bridge: bridge}
}

// CreateToken mints a token for username.
func (b *Backend) CreateToken(ctx context.Context, username string) <-chan dispatch.Reply[*token.Created] {
	return dispatch.Do(ctx, b.pool, func(ctx context.Context) (*token.Created, error) {
		return b.tokens.Create(ctx, username)
	})
}

// ValidateToken resolves a bearer token to its owner.
func (b *Backend) ValidateToken(ctx context.Context, tok string) <-chan dispatch.Reply[string] {
	return dispatch.Do(ctx, b.pool, func(ctx context.Context) (string, error) {
		return b.tokens.Validate(ctx, tok)
	})
}

// DeleteToken removes one (username, token) pair.
func (b *Backend) DeleteToken(ctx context.Context, username, tok string) <-chan dispatch.Reply[*token.Deleted] {
	return dispatch.Do(ctx, b.pool, func(ctx context.Context) (*token.Deleted, error) {
		return b.tokens.Delete(ctx, username, tok)
	})
}

// ListTokens lists username's tokens.
func (b *Backend) ListTokens(ctx context.Context, username string) <-chan dispatch.Reply[*token.List] {
	return dispatch.Do(ctx, b.pool, func(ctx context.Context) (*token.List, error) {
		return b.tokens.List(ctx, username)
	})
}

// ListUsers lists the distinct usernames holding tokens.
func (b *Backend) ListUsers(ctx context.Context) <-chan dispatch.Reply[*token.Users] {
	return dispatch.Do(ctx, b.pool, func(ctx context.Context) (*token.Users, error) {
		return b.tokens.ListUsernames(ctx)
	})
}

// DeleteUserTokens removes every token owned by username.
func (b *Backend) DeleteUserTokens(ctx context.Context, username string) <-chan dispatch.Reply[*token.Deleted] {
	return dispatch.Do(ctx, b.pool, func(ctx context.Context) (*token.Deleted, error) {
		return b.tokens.DeleteAll(ctx, username)
	})
}

// VerifyCredentials exchanges a credential pair for the upstream profile.
func (b *Backend) VerifyCredentials(ctx context.Context, username, password string) <-chan dispatch.Reply[*upstream.VerifyResult] {
	return dispatch.Do(ctx, b.pool, func(ctx context.Context) (*upstream.VerifyResult, error) {
		return b.bridge.VerifyBasicAuth(ctx, username, password)
	})
}
