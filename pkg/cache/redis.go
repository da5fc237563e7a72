// pkg/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"exam-quiz/internal/models"

	"github.com/go-redis/redis/v8"
)

const sessionPrefix = "session:"

type Options struct {
	Addr     string
	Password string
	DB       int
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(opts Options) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// SaveSession stores the session under its id for ttl.
func (c *RedisCache) SaveSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionPrefix+session.ID, data, ttl).Err()
}

// GetSession returns nil, nil for a missing or expired session.
func (c *RedisCache) GetSession(ctx context.Context, id string) (*models.Session, error) {
	data, err := c.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *RedisCache) DeleteSession(ctx context.Context, id string) error {
	return c.client.Del(ctx, sessionPrefix+id).Err()
}
