package lock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithLock_SerializesSameRecipient(t *testing.T) {
	m := NewManager()
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithLock("g1", func() error {
				n := atomic.AddInt32(&active, 1)
				for {
					cur := atomic.LoadInt32(&maxActive)
					if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxActive, "at most one goroutine should hold recipient g1's lock at a time")
}

func TestWithLock_DifferentRecipientsDoNotBlockEachOther(t *testing.T) {
	m := NewManager()
	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := m.Lock("b")
		defer unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for a different recipient should not block")
	}
}

func TestEvict_RemovesTrackedMutex(t *testing.T) {
	m := NewManager()
	unlock := m.Lock("x")
	unlock()
	assert.Equal(t, 1, m.Len())

	m.Evict("x")
	assert.Equal(t, 0, m.Len())
}
