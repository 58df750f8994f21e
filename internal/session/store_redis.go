package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/zanclus/nexus-auth-proxy/pkg/errors"
)

const redisKeyPrefix = "nexus-proxy:session:"

// RedisStore persists sessions in Redis so they survive gateway restarts
// and can be shared across instances. Expiry rides on the Redis TTL.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, "get session", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, "decode session", err)
	}
	if sess.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, "encode session", err)
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return pkgerrors.New(pkgerrors.CodeStore, "session already expired")
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sess.ID, raw, ttl).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, "save session", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, "delete session", err)
	}
	return nil
}
