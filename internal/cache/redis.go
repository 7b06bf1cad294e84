package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Additional-Code/ordertrack/internal/config"
)

const keyPrefix = "ordertrack:"

// unlockScript deletes the lock only when it still carries the caller's token.
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisStore struct {
	client     *goredis.Client
	defaultTTL time.Duration
}

func newRedisStore(cfg config.Cache) *redisStore {
	return &redisStore{
		client: goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
		defaultTTL: cfg.DefaultTTL,
	}
}

func (s *redisStore) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheMiss
	}
	res, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	return res, err
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.client.Set(ctx, keyPrefix+key, value, s.ttl(ttl)).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, keyPrefix+key).Err()
}

func (s *redisStore) Lock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, keyPrefix+key, token, s.ttl(ttl)).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (s *redisStore) Unlock(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	return unlockScript.Run(ctx, s.client, []string{keyPrefix + key}, token).Err()
}
