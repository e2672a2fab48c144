package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ticketgate/gate-api/internal/config"
)

// Open builds the backend named by conf. An unreachable Redis is not fatal:
// reads fall through to the record store until it comes back.
func Open(ctx context.Context, conf *config.CacheConfig) (Backend, func(), error) {
	switch conf.Backend {
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         conf.RedisAddr,
			Password:     conf.RedisPassword,
			DB:           conf.RedisDB,
			DialTimeout:  conf.OpTimeout,
			ReadTimeout:  conf.OpTimeout,
			WriteTimeout: conf.OpTimeout,
		})
		backend := NewRedisBackend(client)

		if err := backend.Ping(ctx); err != nil {
			zap.L().Warn("redis cache unreachable, serving from the record store",
				zap.String("addr", conf.RedisAddr),
				zap.Error(err),
			)
		} else {
			zap.L().Info("connected to redis cache", zap.String("addr", conf.RedisAddr))
		}

		return backend, func() { _ = client.Close() }, nil

	case config.CacheBackendMemory:
		backend := NewMemoryBackend(conf.CleanupInterval)
		return backend, backend.Close, nil

	case config.CacheBackendDisabled:
		return Disabled(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown cache backend %q", conf.Backend)
}
