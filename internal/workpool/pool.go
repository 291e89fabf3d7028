// Package workpool provides the data-parallel worker pool used inside a single
// training stage. Work is always split by matrix rows, because no unit's output
// within a stage depends on another unit's output in the same stage.
package workpool

import (
	"runtime"
	"sync"
)

// minRows is the smallest row count worth fanning out.
const minRows = 8

// workItem is a contiguous row range [lo, hi) of one stage.
type workItem struct {
	lo, hi int
	fn     func(lo, hi int)
	done   *sync.WaitGroup
}

func (item workItem) Do() {
	item.fn(item.lo, item.hi)
	item.done.Done()
}

// Pool is a fixed set of goroutines fed through a buffered channel.
//
// A nil *Pool is valid and runs everything on the calling goroutine.
type Pool struct {
	sync.RWMutex
	items  chan workItem
	wg     sync.WaitGroup
	n      int
	closed bool
}

// New starts a pool with the given number of workers. If workers <= 0, runtime.NumCPU() workers are started.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		items: make(chan workItem, workers),
		n:     workers,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for item := range p.items {
		item.Do()
	}
}

// Workers returns the number of goroutines in the pool.
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.n
}

// Rows splits [0, n) into contiguous chunks, runs fn on each chunk and
// returns once every chunk is done. Chunks never overlap, so fn may write to
// any row inside its own range without synchronisation.
func (p *Pool) Rows(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if p == nil || p.n == 1 || n < minRows {
		fn(0, n)
		return
	}

	p.RLock()
	defer p.RUnlock()
	if p.closed {
		fn(0, n)
		return
	}

	chunks := p.n
	if chunks > n {
		chunks = n
	}
	size := (n + chunks - 1) / chunks

	var done sync.WaitGroup
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		done.Add(1)
		p.items <- workItem{lo: lo, hi: hi, fn: fn, done: &done}
	}
	done.Wait()
}

// Close stops the workers. It is safe to call Close more than once. Rows
// called after Close runs inline.
func (p *Pool) Close() error {
	if p == nil {
		return nil
	}
	p.Lock()
	if p.closed {
		p.Unlock()
		return nil
	}
	p.closed = true
	close(p.items)
	p.Unlock()
	p.wg.Wait()
	return nil
}
