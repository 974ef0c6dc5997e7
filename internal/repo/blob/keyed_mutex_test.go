package blob

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexExclusive(t *testing.T) {
	t.Parallel()

	locks := newKeyedMutex()
	release := locks.Lock("a", true)

	acquired := make(chan struct{})

	go func() {
		defer locks.Lock("a", false)()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("reader acquired lock held by writer")
	case <-time.After(20 * time.Millisecond):
	}

	otherDone := make(chan struct{})

	go func() {
		defer locks.Lock("b", true)()
		close(otherDone)
	}()

	select {
	case <-otherDone:
	case <-time.After(time.Second):
		t.Fatal("distinct key blocked")
	}

	release()
	<-acquired
}

func TestKeyedMutexForgetsUnusedKeys(t *testing.T) {
	t.Parallel()

	locks := newKeyedMutex()

	var wg sync.WaitGroup

	for range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			locks.Lock("k", false)()
		}()
	}

	wg.Wait()

	if n := locks.size(); n != 0 {
		t.Errorf("size() = %d, want 0", n)
	}
}
