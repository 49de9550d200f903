package service

import "sync"

// eventLocks is a keyed mutex: one lock per event id, created on demand and
// dropped when nobody holds or waits for it.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*eventLock
}

type eventLock struct {
	sync.Mutex
	refs int
}

func newEventLocks() *eventLocks {
	return &eventLocks{locks: make(map[string]*eventLock)}
}

// Lock blocks until the event's lock is held and returns its unlock func.
func (k *eventLocks) Lock(eventID string) func() {
	k.mu.Lock()
	lk, ok := k.locks[eventID]
	if !ok {
		lk = &eventLock{}
		k.locks[eventID] = lk
	}
	lk.refs++
	k.mu.Unlock()

	lk.Lock()

	return func() {
		lk.Unlock()

		k.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(k.locks, eventID)
		}
		k.mu.Unlock()
	}
}

func (k *eventLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
