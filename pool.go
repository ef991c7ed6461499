package deepfield

import (
	"image"
	"sync"

	"github.com/swdee/go-deepfield/postprocess"
)

// worker materializes regions on behalf of the pool
type worker struct {
	id int
	m  *postprocess.Materializer
}

// Pool is a fixed size set of workers used to materialize regions in
// parallel
type Pool struct {
	// pool of idle workers
	workers chan *worker
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a pool of size workers sharing the materializer
func NewPool(size int, m *postprocess.Materializer) *Pool {

	if size < 1 {
		size = 1
	}

	p := &Pool{
		workers: make(chan *worker, size),
		size:    size,
	}

	for i := 0; i < size; i++ {
		p.Return(&worker{id: i, m: m})
	}

	return p
}

// Get a worker from the pool, blocks until one is idle
func (p *Pool) Get() *worker {
	return <-p.workers
}

// Return a worker to the pool
func (p *Pool) Return(w *worker) {
	select {
	case p.workers <- w:
	default:
		// pool is full
	}
}

// Size returns the number of workers in the pool
func (p *Pool) Size() int {
	return p.size
}

// Close the pool
func (p *Pool) Close() {
	p.close.Do(func() {
		close(p.workers)
	})
}

// materializeAll materializes every region, writing each result to the slot
// matching its position in regions.  The first error in region order is
// returned.
func (p *Pool) materializeAll(src *image.RGBA, regions []postprocess.Region) ([]*postprocess.Material, error) {

	out := make([]*postprocess.Material, len(regions))
	errs := make([]error, len(regions))

	var wg sync.WaitGroup

	for i := range regions {
		// Get blocks if all workers are busy
		w := p.Get()
		wg.Add(1)

		go func(i int, w *worker) {
			defer wg.Done()
			defer p.Return(w)

			out[i], errs[i] = w.m.Materialize(src, regions[i])
		}(i, w)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}
