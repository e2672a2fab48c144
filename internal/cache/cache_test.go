package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoRow = errors.New("no row")

type item struct {
	ID   uint
	Name string
	At   time.Time
}

// failingBackend simulates an unreachable cache server.
type failingBackend struct {
	sets atomic.Int32
}

func (b *failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, ErrUnavailable
}

func (b *failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	b.sets.Add(1)
	return ErrUnavailable
}

func (b *failingBackend) Delete(context.Context, ...string) error {
	return ErrUnavailable
}

func newMemoryCache(t *testing.T, opts Options) (*Cache, *MemoryBackend) {
	t.Helper()
	b := NewMemoryBackend(0)
	t.Cleanup(b.Close)
	return New(b, opts), b
}

func TestReadThrough_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(t, Options{NotFoundTTL: time.Minute})
	at := time.Date(2026, 5, 14, 10, 30, 0, 123456789, time.UTC)

	var loads int
	load := func(context.Context) (item, error) {
		loads++
		return item{ID: 7, Name: "Ada", At: at}, nil
	}

	got, err := ReadThrough(ctx, c, "k", errNoRow, load)
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.ID)

	got, err = ReadThrough(ctx, c, "k", errNoRow, load)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.True(t, at.Equal(got.At))
	assert.Equal(t, 1, loads)

	entry, err := Lookup[item](ctx, c, "k")
	require.NoError(t, err)
	assert.Equal(t, Hit, entry.Kind)
}

func TestReadThrough_NotFoundIsCached(t *testing.T) {
	ctx := context.Background()
	c, b := newMemoryCache(t, Options{NotFoundTTL: time.Minute})
	now := time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	var loads int
	load := func(context.Context) (item, error) {
		loads++
		return item{}, errNoRow
	}

	_, err := ReadThrough(ctx, c, "k", errNoRow, load)
	assert.ErrorIs(t, err, errNoRow)

	entry, err := Lookup[item](ctx, c, "k")
	require.NoError(t, err)
	assert.Equal(t, NotFound, entry.Kind)

	_, err = ReadThrough(ctx, c, "k", errNoRow, load)
	assert.ErrorIs(t, err, errNoRow)
	assert.Equal(t, 1, loads)

	// The marker expires after the not-found TTL.
	now = now.Add(time.Minute)
	_, err = ReadThrough(ctx, c, "k", errNoRow, load)
	assert.ErrorIs(t, err, errNoRow)
	assert.Equal(t, 2, loads)
}

func TestReadThrough_OtherErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	c, b := newMemoryCache(t, Options{})
	boom := errors.New("boom")

	_, err := ReadThrough(ctx, c, "k", errNoRow, func(context.Context) (item, error) {
		return item{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, b.Len())
}

func TestReadThrough_BackendOutageFallsThrough(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	c := New(backend, Options{})

	var loads int
	load := func(context.Context) (item, error) {
		loads++
		return item{ID: 1}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := ReadThrough(ctx, c, "k", errNoRow, load)
		require.NoError(t, err)
		assert.Equal(t, uint(1), got.ID)
	}
	assert.Equal(t, 3, loads)
	assert.Equal(t, int32(0), backend.sets.Load())

	c.Invalidate(ctx, "k")
}

func TestReadThrough_Disabled(t *testing.T) {
	ctx := context.Background()
	c := New(Disabled(), Options{})

	var loads int
	load := func(context.Context) ([]item, error) {
		loads++
		return []item{{ID: 1}, {ID: 2}}, nil
	}

	for i := 0; i < 2; i++ {
		got, err := ReadThrough(ctx, c, "k", errNoRow, load)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	}
	assert.Equal(t, 2, loads)
}

func TestReadThrough_CollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(t, Options{})

	var loads, started atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (item, error) {
		loads.Add(1)
		<-release
		return item{ID: 3}, nil
	}

	var wg sync.WaitGroup
	results := make([]item, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Add(1)
			got, err := ReadThrough(ctx, c, "k", errNoRow, load)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	require.Eventually(t, func() bool {
		return loads.Load() == 1 && started.Load() == int32(len(results))
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, uint(3), got.ID)
	}
	// Late arrivals either joined the flight or hit the written value.
	assert.Equal(t, int32(1), loads.Load())
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(t, Options{})

	Put(ctx, c, "a", item{ID: 1})
	Put(ctx, c, "b", item{ID: 2})
	c.Invalidate(ctx, "a", "b")
	c.Invalidate(ctx)

	for _, key := range []string{"a", "b"} {
		entry, err := Lookup[item](ctx, c, key)
		require.NoError(t, err)
		assert.Equal(t, Miss, entry.Kind)
	}
}

func TestLookup_UndecodableValueIsMiss(t *testing.T) {
	ctx := context.Background()
	c, b := newMemoryCache(t, Options{})
	require.NoError(t, b.Set(ctx, "k", []byte{0xff, 0x00}, 0))

	entry, err := Lookup[item](ctx, c, "k")
	require.NoError(t, err)
	assert.Equal(t, Miss, entry.Kind)
	assert.Equal(t, 0, b.Len())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "attendee:ticket:4:ABC-1", AttendeeByTicketKey(4, "ABC-1"))
	assert.Equal(t, "attendee:id:9", AttendeeByIDKey(9))
	assert.Equal(t, "event:4", EventKey(4))
	assert.Equal(t, "event:4:roster", RosterKey(4))
	assert.Equal(t, "event:4:tickettype:VIP", TicketTypeKey(4, "VIP"))
	assert.Equal(t, "event:4:occupancy", OccupancyKey(4))
}
