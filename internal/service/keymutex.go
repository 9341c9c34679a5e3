package service

import "sync"

// keyMutex serialises work per string key. Locks are created on first use and
// kept for the process lifetime; the key space (contact/channel tuples) is
// small enough that reclamation is not worth the bookkeeping.
type keyMutex struct {
	locks sync.Map // map[string]*sync.Mutex
}

func (k *keyMutex) Lock(key string) {
	k.mutexFor(key).Lock()
}

func (k *keyMutex) Unlock(key string) {
	k.mutexFor(key).Unlock()
}

func (k *keyMutex) mutexFor(key string) *sync.Mutex {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}
