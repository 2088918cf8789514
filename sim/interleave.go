package sim

import "sync"

// interleaver lets observer goroutines read kernel state between two event
// releases. Observers hold it shared; the stepping goroutine enters a step
// window only when no observer holds it. The stepping goroutine never blocks
// an observer for longer than one event release.
type interleaver struct {
	lock     sync.Mutex
	cond     *sync.Cond
	holders  int
	stepping bool
}

func newInterleaver() *interleaver {
	il := new(interleaver)
	il.cond = sync.NewCond(&il.lock)

	return il
}

// acquire waits for the running step to finish and then holds the lock.
// Several observers may hold the lock at the same time.
func (il *interleaver) acquire() {
	il.lock.Lock()
	defer il.lock.Unlock()

	for il.stepping {
		il.cond.Wait()
	}

	il.holders++
}

func (il *interleaver) release() {
	il.lock.Lock()
	defer il.lock.Unlock()

	if il.holders == 0 {
		panic("sim: interleave unlock without lock")
	}

	il.holders--
	il.cond.Broadcast()
}

// begin opens a step window. It waits until every observer let go.
func (il *interleaver) begin() {
	il.lock.Lock()
	defer il.lock.Unlock()

	for il.holders > 0 {
		il.cond.Wait()
	}

	il.stepping = true
}

func (il *interleaver) end() {
	il.lock.Lock()
	defer il.lock.Unlock()

	il.stepping = false
	il.cond.Broadcast()
}
