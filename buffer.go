package gst

import (
	"sync/atomic"
	"time"

	"pipelined.dev/gst/internal/pool"
)

// Buffer is a reference-counted chunk of bytes. A buffer is writable until
// it's sealed or shared. Pads seal buffers when they are pushed.
type Buffer struct {
	data   []byte
	refs   atomic.Int32
	sealed atomic.Bool

	// Offset is the position of the buffer in the stream, in bytes.
	Offset int64
	// PTS is the presentation timestamp, negative if unknown.
	PTS time.Duration
}

// NewBuffer allocates a zeroed buffer of provided size.
func NewBuffer(size int) *Buffer {
	b := &Buffer{
		data: pool.Alloc(size),
		PTS:  -1,
	}
	b.refs.Store(1)
	return b
}

// NewBufferFromBytes allocates a buffer with a copy of p.
func NewBufferFromBytes(p []byte) *Buffer {
	b := NewBuffer(len(p))
	copy(b.data, p)
	return b
}

// Len returns the size of the buffer.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Ref adds a reference to the buffer.
func (b *Buffer) Ref() *Buffer {
	if b.refs.Add(1) <= 1 {
		panic("gst: ref of released buffer")
	}
	return b
}

// Unref drops a reference. The memory is returned to the pool when the last
// reference is dropped.
func (b *Buffer) Unref() {
	switch n := b.refs.Add(-1); {
	case n == 0:
		pool.Free(b.data)
		b.data = nil
	case n < 0:
		panic("gst: buffer released too many times")
	}
}

// RefCount returns number of references.
func (b *Buffer) RefCount() int {
	return int(b.refs.Load())
}

// Writable returns true if the buffer can be filled.
func (b *Buffer) Writable() bool {
	return !b.sealed.Load() && b.refs.Load() == 1
}

// Fill copies p into buffer at offset. It returns number of bytes copied.
func (b *Buffer) Fill(offset int, p []byte) (int, error) {
	if !b.Writable() {
		return 0, ErrNotWritable
	}
	if offset < 0 || offset > len(b.data) {
		return 0, ErrNotWritable
	}
	return copy(b.data[offset:], p), nil
}

// Seal makes the buffer content immutable.
func (b *Buffer) Seal() {
	b.sealed.Store(true)
}

// Sealed returns true if the buffer was sealed.
func (b *Buffer) Sealed() bool {
	return b.sealed.Load()
}

// Bytes returns a copy of the buffer content.
func (b *Buffer) Bytes() []byte {
	p := make([]byte, len(b.data))
	copy(p, b.data)
	return p
}

// CopyTo copies buffer content into p and returns number of copied bytes.
func (b *Buffer) CopyTo(p []byte) int {
	return copy(p, b.data)
}
