package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss means the key is absent from the backend.
	ErrMiss = errors.New("cache miss")
	// ErrUnavailable wraps backend failures (network, timeouts).
	ErrUnavailable = errors.New("cache backend unavailable")
	// ErrDisabled is returned by the disabled backend. It is never logged.
	ErrDisabled = errors.New("cache disabled")
)

// Backend stores opaque values. A ttl of zero means no expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type disabledBackend struct{}

// Disabled returns a Backend that stores nothing, so every lookup falls
// through to the record store.
func Disabled() Backend {
	return disabledBackend{}
}

func (disabledBackend) Get(context.Context, string) ([]byte, error) {
	return nil, ErrDisabled
}

func (disabledBackend) Set(context.Context, string, []byte, time.Duration) error {
	return ErrDisabled
}

func (disabledBackend) Delete(context.Context, ...string) error {
	return ErrDisabled
}
