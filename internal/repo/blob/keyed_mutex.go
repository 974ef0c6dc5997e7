package blob

import (
	"sync"

	"github.com/mkrupp/webgallery/internal/domain"
)

// keyedMutex hands out one RWMutex per blob id and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.BlobID]*refLock
}

type refLock struct {
	sync.RWMutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[domain.BlobID]*refLock)}
}

// Lock acquires the lock for id, shared unless exclusive, and returns its release function.
func (k *keyedMutex) Lock(id domain.BlobID, exclusive bool) func() {
	k.mu.Lock()

	lock, ok := k.locks[id]
	if !ok {
		lock = new(refLock)
		k.locks[id] = lock
	}

	lock.refs++
	k.mu.Unlock()

	if exclusive {
		lock.Lock()
	} else {
		lock.RLock()
	}

	return func() {
		if exclusive {
			lock.Unlock()
		} else {
			lock.RUnlock()
		}

		k.mu.Lock()
		defer k.mu.Unlock()

		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, id)
		}
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.locks)
}
