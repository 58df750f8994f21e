// Package service implements the token lifecycle operations on top of a
// token store. It owns token minting; the store only persists.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/zanclus/nexus-auth-proxy/internal/token"
	"github.com/zanclus/nexus-auth-proxy/internal/token/store"
	pkgerrors "github.com/zanclus/nexus-auth-proxy/pkg/errors"
)

// Service coordinates token operations against a Store.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a token Service.
func New(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Create mints a fresh random token for username and persists it.
func (s *Service) Create(ctx context.Context, username string) (*token.Created, error) {
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "username is required")
	}
	tok := uuid.NewString()
	if err := s.store.Insert(ctx, username, tok); err != nil {
		s.logger.ErrorContext(ctx, "failed to create token",
			"username", username,
			"error", err.Error(),
		)
		return nil, err
	}
	return &token.Created{Token: tok, Username: username}, nil
}

// Validate resolves a bearer token to its owning username.
func (s *Service) Validate(ctx context.Context, tok string) (string, error) {
	if tok == "" {
		return "", pkgerrors.New(pkgerrors.CodeBadRequest, "token is required")
	}
	username, err := s.store.FindUsername(ctx, tok)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "unknown token")
		}
		return "", err
	}
	return username, nil
}

// List returns all tokens owned by username.
func (s *Service) List(ctx context.Context, username string) (*token.List, error) {
	tokens, err := s.store.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return &token.List{Username: username, Tokens: tokens}, nil
}

// ListUsernames returns the distinct usernames with at least one token.
func (s *Service) ListUsernames(ctx context.Context) (*token.Users, error) {
	users, err := s.store.ListUsernames(ctx)
	if err != nil {
		return nil, err
	}
	return &token.Users{Users: users}, nil
}

// Delete removes one token; both username and token must match.
func (s *Service) Delete(ctx context.Context, username, tok string) (*token.Deleted, error) {
	if err := s.store.DeleteOne(ctx, username, tok); err != nil {
		return nil, err
	}
	return &token.Deleted{Success: "true"}, nil
}

// DeleteAll removes every token owned by username.
func (s *Service) DeleteAll(ctx context.Context, username string) (*token.Deleted, error) {
	deleted, err := s.store.DeleteAllForUser(ctx, username)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "deleted user tokens",
		"username", username,
		"count", deleted,
	)
	return &token.Deleted{Success: "true"}, nil
}
