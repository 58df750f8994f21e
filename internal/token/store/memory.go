package store

import (
	"context"
	"sort"
	"sync"

	pkgerrors "github.com/zanclus/nexus-auth-proxy/pkg/errors"
)

type record struct {
	username string
	token    string
}

// Memory keeps token records in memory for tests and development.
type Memory struct {
	mu      sync.RWMutex
	records []record
}

// NewMemory constructs an empty in-memory token store.
func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Insert(_ context.Context, username, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record{username: username, token: token})
	return nil
}

func (s *Memory) FindUsername(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.token == token {
			return r.username, nil
		}
	}
	return "", ErrNotFound
}

func (s *Memory) ListByUser(_ context.Context, username string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tokens := []string{}
	for _, r := range s.records {
		if r.username == username {
			tokens = append(tokens, r.token)
		}
	}
	sort.Strings(tokens)
	return tokens, nil
}

func (s *Memory) ListUsernames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	users := []string{}
	for _, r := range s.records {
		if !seen[r.username] {
			seen[r.username] = true
			users = append(users, r.username)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (s *Memory) DeleteOne(_ context.Context, username, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.username == username && r.token == token {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) DeleteAllForUser(_ context.Context, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	var deleted int64
	for _, r := range s.records {
		if r.username == username {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	if deleted == 0 {
		return 0, pkgerrors.Newf(pkgerrors.CodeNotFound, "no tokens for user '%s' found", username)
	}
	return deleted, nil
}
