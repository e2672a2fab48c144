package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(0)
	defer b.Close()

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), 0))
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, b.Delete(ctx, "k", "missing"))
	_, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryBackend_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)
	b := NewMemoryBackend(0)
	b.now = func() time.Time { return now }
	defer b.Close()

	require.NoError(t, b.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, b.Set(ctx, "forever", []byte("2"), 0))

	now = now.Add(time.Minute)

	_, err := b.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = b.Get(ctx, "forever")
	assert.NoError(t, err)

	assert.Equal(t, 2, b.Len())
	b.DeleteExpired()
	assert.Equal(t, 1, b.Len())
}

func TestMemoryBackend_Janitor(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(5 * time.Millisecond)
	defer b.Close()

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Millisecond))
	require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryBackend_CopiesValue(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(0)
	defer b.Close()

	value := []byte("abc")
	require.NoError(t, b.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}
