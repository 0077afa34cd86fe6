package usecase

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// KeyedMutex serializes work per key (user id) while letting different keys proceed in parallel
type KeyedMutex struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

// NewKeyedMutex creates an empty keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: xsync.NewMapOf[string, *sync.Mutex]()}
}

// Lock acquires the mutex for key and returns its unlock function
func (k *KeyedMutex) Lock(key string) func() {
	mu, _ := k.locks.LoadOrCompute(key, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}
