package database

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

type RedisClient struct {
	client *redis.Client
}

func GetRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisClient{client: client}, nil
}

// Client exposes the underlying connection for components that need raw
// commands, such as the shared rate limiter.
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func (r *RedisClient) SetSession(ctx context.Context, sessionID string, payload []byte, ttl time.Duration) error {
	return r.client.Set(ctx, sessionKeyPrefix+sessionID, payload, ttl).Err()
}

func (r *RedisClient) GetSession(ctx context.Context, sessionID string) ([]byte, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return payload, err
}

func (r *RedisClient) DeleteSession(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
