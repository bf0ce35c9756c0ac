package keylock_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jcpaschoal/gymhub/foundation/keylock"
	"github.com/stretchr/testify/assert"
)

func Test_SameKeySerializes(t *testing.T) {
	l := keylock.New()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock := l.Lock("ironworks")
			defer unlock()

			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, l.Len())
}

func Test_DifferentKeysDoNotBlock(t *testing.T) {
	l := keylock.New()

	unlockA := l.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}
