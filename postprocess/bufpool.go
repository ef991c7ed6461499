package postprocess

import (
	"fmt"
	"sync"
)

// scratchBGRA is the pool name for the interleaved B, G, R, A buffers handed
// to the PNG encoder
const scratchBGRA = "bgra"

// scratch holds the buffers reused across concurrent Materialize calls
var scratch = newBufferPool(map[string]int{
	scratchBGRA: 256 * 256 * 4,
})

// bufferPool holds a set of named byte buffer pools.  The set of names is
// fixed at construction so lookups need no locking.
type bufferPool struct {
	pools map[string]*bufferEntry
}

// bufferEntry is a single named pool whose buffers start at defaultSize
// capacity
type bufferEntry struct {
	pool        sync.Pool
	defaultSize int
}

// newBufferPool returns a bufferPool with one pool per name, sized by the
// given default buffer capacity
func newBufferPool(sizes map[string]int) *bufferPool {

	b := &bufferPool{
		pools: make(map[string]*bufferEntry, len(sizes)),
	}

	for name, size := range sizes {
		entry := &bufferEntry{defaultSize: size}
		entry.pool.New = func() any {
			buf := make([]uint8, entry.defaultSize)
			return &buf
		}
		b.pools[name] = entry
	}

	return b
}

// Get returns a buffer of length size from the named pool.  The contents are
// not zeroed.  Buffers smaller than size are discarded and a larger one is
// allocated so the pool grows towards the largest crop seen.
func (b *bufferPool) Get(name string, size int) *[]uint8 {

	entry, ok := b.pools[name]

	if !ok {
		panic(fmt.Sprintf("buffer pool %q not registered", name))
	}

	bufp := entry.pool.Get().(*[]uint8)

	if cap(*bufp) < size {
		buf := make([]uint8, size)
		return &buf
	}

	*bufp = (*bufp)[:size]

	return bufp
}

// Put returns a buffer previously obtained with Get from the same named pool
func (b *bufferPool) Put(name string, bufp *[]uint8) {

	entry, ok := b.pools[name]

	if !ok {
		panic(fmt.Sprintf("buffer pool %q not registered", name))
	}

	entry.pool.Put(bufp)
}
