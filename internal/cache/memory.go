package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// MemoryBackend is an in-process Backend. Expired items are hidden on read
// and purged by a janitor goroutine when a cleanup interval is given.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	b := &MemoryBackend{
		items: make(map[string]memoryItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go b.janitor(cleanupInterval)
	}
	return b
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	item, ok := b.items[key]
	b.mu.RUnlock()

	if !ok || item.expired(b.now()) {
		return nil, ErrMiss
	}
	return item.value, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = b.now().Add(ttl)
	}

	b.mu.Lock()
	b.items[key] = item
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	for _, key := range keys {
		delete(b.items, key)
	}
	b.mu.Unlock()
	return nil
}

// Len returns the number of stored items, expired or not.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// DeleteExpired purges expired items.
func (b *MemoryBackend) DeleteExpired() {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	for key, item := range b.items {
		if item.expired(now) {
			delete(b.items, key)
		}
	}
}

// Close stops the janitor.
func (b *MemoryBackend) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
}

func (b *MemoryBackend) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.DeleteExpired()
		case <-b.stop:
			return
		}
	}
}
