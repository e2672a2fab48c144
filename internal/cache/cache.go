// Package cache is the read-through, write-invalidate layer in front of the
// record store. Backend failures never reach callers: reads fall through to
// the loader and writes are dropped with a warning.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Kind tags a lookup result.
type Kind int

const (
	Miss Kind = iota
	Hit
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Hit:
		return "hit"
	case NotFound:
		return "not_found"
	default:
		return "miss"
	}
}

type Entry[T any] struct {
	Kind  Kind
	Value T
}

type Options struct {
	// ValueTTL applies to found values. Zero keeps them until invalidated.
	ValueTTL time.Duration
	// NotFoundTTL applies to confirmed-absent markers.
	NotFoundTTL time.Duration
}

type Cache struct {
	backend Backend
	opts    Options
	group   singleflight.Group
}

func New(backend Backend, opts Options) *Cache {
	return &Cache{
		backend: backend,
		opts:    opts,
	}
}

// Lookup reads key. A non-nil error means the backend could not answer;
// the entry is then a Miss.
func Lookup[T any](ctx context.Context, c *Cache, key string) (Entry[T], error) {
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return Entry[T]{Kind: Miss}, nil
		}
		return Entry[T]{Kind: Miss}, err
	}

	env, err := decode[T](data)
	if err != nil {
		// A value we cannot decode is as good as absent; drop it.
		c.Invalidate(ctx, key)
		return Entry[T]{Kind: Miss}, nil
	}
	if !env.Found {
		return Entry[T]{Kind: NotFound}, nil
	}

	return Entry[T]{Kind: Hit, Value: env.Value}, nil
}

// Put stores a found value with the value TTL.
func Put[T any](ctx context.Context, c *Cache, key string, value T) {
	c.write(ctx, key, true, value, c.opts.ValueTTL)
}

// PutWithTTL stores a found value with an explicit TTL.
func PutWithTTL[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) {
	c.write(ctx, key, true, value, ttl)
}

// PutNotFound stores the confirmed-absent marker with the not-found TTL.
func PutNotFound(ctx context.Context, c *Cache, key string) {
	c.write(ctx, key, false, nil, c.opts.NotFoundTTL)
}

func (c *Cache) write(ctx context.Context, key string, found bool, value any, ttl time.Duration) {
	data, err := encMode.Marshal(envelope[any]{Found: found, Value: value})
	if err != nil {
		zap.L().Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err = c.backend.Set(ctx, key, data, ttl); err != nil {
		logBackendErr("cache write failed", key, err)
	}
}

// ReadThrough returns the cached value for key, or loads it and writes the
// result back. A loader error matching notFound is cached as the not-found
// marker and returned as is; a cached marker is returned as notFound.
// Concurrent misses for the same key share one load. When the backend is
// unreachable the loader result is returned without a write-back.
func ReadThrough[T any](
	ctx context.Context,
	c *Cache,
	key string,
	notFound error,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	entry, err := Lookup[T](ctx, c, key)
	backendUp := err == nil
	if err != nil {
		logBackendErr("cache read failed", key, err)
	}
	switch entry.Kind {
	case Hit:
		return entry.Value, nil
	case NotFound:
		return zero, notFound
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := load(ctx)
		if err != nil {
			if notFound != nil && errors.Is(err, notFound) && backendUp {
				PutNotFound(ctx, c, key)
			}
			return nil, err
		}
		if backendUp {
			Put(ctx, c, key, value)
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: unexpected value type %T for key %s", v, key)
	}
	return value, nil
}

// Invalidate deletes keys. Failures are logged and otherwise ignored: a
// stale entry is corrected by its TTL or by the next invalidation.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.backend.Delete(ctx, keys...); err != nil {
		logBackendErr("cache invalidation failed", fmt.Sprint(keys), err)
	}
}

func logBackendErr(msg, key string, err error) {
	if errors.Is(err, ErrDisabled) {
		return
	}
	zap.L().Warn(msg, zap.String("key", key), zap.Error(err))
}
