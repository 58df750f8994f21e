// Package session holds per-client server-side state: the upstream profile
// last fetched for the caller, keyed by an opaque cookie value.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zanclus/nexus-auth-proxy/internal/upstream"
	pkgerrors "github.com/zanclus/nexus-auth-proxy/pkg/errors"
)

// ErrNotFound keeps lookup misses consistent across implementations.
var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "session not found")

// Session is one client's state. Profile is nil for anonymous sessions.
type Session struct {
	ID        string            `json:"id"`
	Profile   *upstream.Profile `json:"profile,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// New creates an anonymous session valid for ttl.
func New(ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store is the persistence contract for sessions.
type Store interface {
	// Get returns the session with id, or ErrNotFound when absent or
	// expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Save persists the session until its expiry.
	Save(ctx context.Context, sess *Session) error

	// Delete removes the session. Deleting an absent session is not an
	// error.
	Delete(ctx context.Context, id string) error
}
