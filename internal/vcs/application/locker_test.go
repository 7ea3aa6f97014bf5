package application

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocker_SerializesPerBranch(t *testing.T) {
	locker := NewKeyedLocker()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locker.Lock("b-1")
			defer release()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "only one holder per branch at a time")
}

func TestKeyedLocker_IndependentBranches(t *testing.T) {
	locker := NewKeyedLocker()

	releaseA := locker.Lock("b-a")
	defer releaseA()

	// A different branch must not block.
	done := make(chan struct{})
	go func() {
		release := locker.Lock("b-b")
		release()
		close(done)
	}()
	<-done
}

func TestNoopLocker_NeverBlocks(t *testing.T) {
	var locker NoopLocker
	r1 := locker.Lock("b-1")
	r2 := locker.Lock("b-1")
	r1()
	r2()
}
