package meter

import "sync"

// subscriberLocks hands out one mutex per subscriber. Entries are dropped once
// nobody holds or waits for them.
type subscriberLocks struct {
	mu    sync.Mutex
	locks map[int64]*subscriberLock
}

type subscriberLock struct {
	mu   sync.Mutex
	refs int
}

func newSubscriberLocks() *subscriberLocks {
	return &subscriberLocks{locks: make(map[int64]*subscriberLock)}
}

// lock blocks until the subscriber's section is free and returns its release func.
func (l *subscriberLocks) lock(id int64) func() {
	l.mu.Lock()
	sl, ok := l.locks[id]
	if !ok {
		sl = &subscriberLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *subscriberLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
