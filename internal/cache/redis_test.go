package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		DialTimeout: 100 * time.Millisecond,
		ReadTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisBackend(client), mr
}

func TestRedisBackend_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)

	require.NoError(t, b.Ping(ctx))

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	require.NoError(t, b.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
	assert.NoError(t, b.Delete(ctx))
}

func TestRedisBackend_TTL(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(time.Minute)

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisBackend_Unavailable(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)
	mr.Close()

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, b.Set(ctx, "k", []byte("v"), 0), ErrUnavailable)
	assert.ErrorIs(t, b.Delete(ctx, "k"), ErrUnavailable)
}
