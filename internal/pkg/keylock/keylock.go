// Package keylock provides non-blocking mutual exclusion scoped by string
// key. A key is removed from the registry as soon as it is released, so the
// registry only holds keys that are currently locked.
package keylock

import (
	"sync"
)

type Registry struct {
	mu     sync.Mutex
	holder map[string]struct{}
}

func New() *Registry {
	return &Registry{
		holder: make(map[string]struct{}),
	}
}

// TryLock acquires key without waiting. When the key is already held it
// returns ok=false and a nil release func.
func (r *Registry) TryLock(key string) (release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.holder[key]; held {
		return nil, false
	}
	r.holder[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.holder, key)
			r.mu.Unlock()
		})
	}, true
}

// Held reports how many keys are currently locked.
func (r *Registry) Held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.holder)
}
