// Package store persists token records. Implementations must convert every
// backend failure into a pkg/errors value; no raw driver error crosses this
// boundary.
package store

import (
	"context"

	pkgerrors "github.com/zanclus/nexus-auth-proxy/pkg/errors"
)

// ErrNotFound keeps storage-specific lookup misses consistent across
// implementations.
var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "token not found")

// Store is the persistence contract for the token lifecycle.
type Store interface {
	// Insert persists a (username, token) pair. Zero rows affected is a
	// store error, indistinguishable from any other insert failure.
	Insert(ctx context.Context, username, token string) error

	// FindUsername resolves a token to its owner. Returns ErrNotFound
	// when no row matches; the first row wins if duplicates ever exist.
	FindUsername(ctx context.Context, token string) (string, error)

	// ListByUser returns the tokens owned by username. An empty slice,
	// not an error, when the user owns none.
	ListByUser(ctx context.Context, username string) ([]string, error)

	// ListUsernames returns the distinct usernames across all tokens.
	ListUsernames(ctx context.Context) ([]string, error)

	// DeleteOne removes the pair iff both fields match. Zero rows
	// affected reports ErrNotFound.
	DeleteOne(ctx context.Context, username, token string) error

	// DeleteAllForUser removes every token owned by username and returns
	// the count. Zero rows affected reports an error naming the user.
	DeleteAllForUser(ctx context.Context, username string) (int64, error)
}
