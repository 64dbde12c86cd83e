package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aurora-shield/aurora-shield/database"
)

// RedisStore shares sessions between instances.
type RedisStore struct {
	redis *database.RedisClient
}

func NewRedisStore(redis *database.RedisClient) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.redis.SetSession(ctx, sess.ID, payload, ttl)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.redis.GetSession(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.redis.DeleteSession(ctx, id)
}
