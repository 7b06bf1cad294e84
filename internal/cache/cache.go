// Package cache provides the read-through order cache and the short-lived
// locks that keep reminder passes from overlapping.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/config"
)

// Store is a byte cache with advisory locks.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Lock acquires key for ttl if nobody holds it. The returned token must
	// be passed to Unlock.
	Lock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	// Unlock releases key only if it is still held with token.
	Unlock(ctx context.Context, key, token string) error
}

var (
	// ErrCacheMiss indicates the key is absent from the cache.
	ErrCacheMiss = errors.New("cache miss")
	// ErrEmptyKey is returned for writes and locks without a key.
	ErrEmptyKey = errors.New("cache key is required")
)

// Module provides the cache store to the Fx graph.
var Module = fx.Provide(NewStore)

// NewStore initialises the configured cache store (redis or noop).
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Cache.Driver {
	case "noop":
		logger.Info("cache disabled; using noop store")
		return noopStore{}, nil
	case "redis":
		store := newRedisStore(cfg.Cache)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := store.client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("ping redis: %w", err)
				}
				logger.Info("redis cache connected", zap.String("addr", cfg.Cache.Redis.Addr))
				return nil
			},
			OnStop: func(context.Context) error {
				logger.Info("closing redis cache")
				return store.client.Close()
			},
		})
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

// NoopStore returns a store that never caches and always grants locks.
func NoopStore() Store {
	return noopStore{}
}

type noopStore struct{}

func (noopStore) Get(context.Context, string) ([]byte, error)              { return nil, ErrCacheMiss }
func (noopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noopStore) Delete(context.Context, string) error                     { return nil }
func (noopStore) Unlock(context.Context, string, string) error             { return nil }

func (noopStore) Lock(context.Context, string, time.Duration) (string, bool, error) {
	return "", true, nil
}
