// Package pool keeps byte pools for buffer memory, one pool per power of two
// size class.
package pool

import (
	"math/bits"
	"sync"

	"github.com/oxtoacart/bpool"
)

const (
	minClass = 6  // 64 bytes
	maxClass = 24 // 16 MiB, larger slices bypass the pools
	perClass = 64
)

var m = struct {
	sync.Mutex
	pools map[int]*bpool.BytePool
}{
	pools: map[int]*bpool.BytePool{},
}

// Alloc returns a zeroed slice of length n.
func Alloc(n int) []byte {
	c := class(n)
	if c > maxClass {
		return make([]byte, n)
	}
	b := get(c).Get()[:n]
	clear(b)
	return b
}

// Free hands b back to the pool it came from. Slices that were not
// allocated by Alloc are ignored.
func Free(b []byte) {
	c := class(cap(b))
	if c > maxClass || cap(b) != 1<<c {
		return
	}
	get(c).Put(b[:cap(b)])
}

// Pooled returns number of size classes that have been used so far.
func Pooled() int {
	m.Lock()
	defer m.Unlock()
	return len(m.pools)
}

func get(c int) *bpool.BytePool {
	m.Lock()
	defer m.Unlock()
	if p, ok := m.pools[c]; ok {
		return p
	}
	p := bpool.NewBytePool(perClass, 1<<c)
	m.pools[c] = p
	return p
}

func class(n int) int {
	if n <= 1<<minClass {
		return minClass
	}
	return bits.Len(uint(n - 1))
}
