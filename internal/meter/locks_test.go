package meter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriberLocksSerializeSameSubscriber(t *testing.T) {
	locks := newSubscriberLocks()

	unlock := locks.lock(1)
	acquired := make(chan struct{})
	go func() {
		release := locks.lock(1)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestSubscriberLocksIndependentSubscribers(t *testing.T) {
	locks := newSubscriberLocks()

	unlock := locks.lock(1)
	defer unlock()

	done := make(chan struct{})
	go func() {
		locks.lock(2)()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber 2 blocked by subscriber 1")
	}
}

func TestSubscriberLocksReleaseEntries(t *testing.T) {
	locks := newSubscriberLocks()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			locks.lock(id)()
		}(int64(i % 5))
	}
	wg.Wait()

	assert.Equal(t, 0, locks.size())
}
