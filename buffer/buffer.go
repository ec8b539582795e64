package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/hupe1980/colseg/internal/mmap"
)

var (
	// ErrClosed is returned when a buffer is used after its session released it.
	ErrClosed = errors.New("buffer: closed")
	// ErrOutOfBounds is returned for accesses outside [0, Size()).
	ErrOutOfBounds = errors.New("buffer: out of bounds")
	// ErrReadOnly is returned when writing to a read-only buffer.
	ErrReadOnly = errors.New("buffer: read-only")
)

// Buffer is a fixed-size byte region backed by heap memory or a mapping.
//
// Reads are safe for concurrent use. Writes are not synchronized; a writable
// buffer is expected to have a single owner.
type Buffer struct {
	data     []byte
	writable bool
	mode     ReadMode
	closed   *atomic.Bool
	flush    func() error
	release  func() error
	parent   bool
}

// Wrap returns a heap buffer over data. release, if non-nil, runs once on Close.
func Wrap(data []byte, writable bool, release func() error) *Buffer {
	return &Buffer{
		data:     data,
		writable: writable,
		mode:     ReadModeHeap,
		closed:   new(atomic.Bool),
		release:  release,
		parent:   true,
	}
}

// FromMapping returns a buffer over a memory mapping. Closing the buffer
// unmaps it.
func FromMapping(m *mmap.Mapping) *Buffer {
	return &Buffer{
		data:     m.Bytes(),
		writable: m.Writable(),
		mode:     ReadModeMmap,
		closed:   new(atomic.Bool),
		flush:    m.Flush,
		release:  m.Close,
		parent:   true,
	}
}

// Size returns the size of the buffer in bytes.
func (b *Buffer) Size() int {
	return len(b.data)
}

// Mode reports whether the buffer is heap-resident or mapped.
func (b *Buffer) Mode() ReadMode {
	return b.mode
}

// Writable reports whether the buffer accepts writes.
func (b *Buffer) Writable() bool {
	return b.writable
}

// Closed reports whether the buffer was released.
func (b *Buffer) Closed() bool {
	return b.closed.Load()
}

// Bytes returns the underlying bytes, or nil once the buffer is closed.
// The slice must not be retained beyond the owning session and must not be
// modified unless the buffer is writable.
func (b *Buffer) Bytes() []byte {
	if b.closed.Load() {
		return nil
	}
	return b.data
}

func (b *Buffer) check(off, n int) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if off < 0 || n < 0 || off > len(b.data)-n {
		return fmt.Errorf("%w: offset %d length %d size %d", ErrOutOfBounds, off, n, len(b.data))
	}
	return nil
}

func (b *Buffer) checkWrite(off, n int) error {
	if err := b.check(off, n); err != nil {
		return err
	}
	if !b.writable {
		return ErrReadOnly
	}
	return nil
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrOutOfBounds
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Writes never grow the buffer.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b.data)) {
		return 0, ErrOutOfBounds
	}
	if err := b.checkWrite(int(off), len(p)); err != nil {
		return 0, err
	}
	return copy(b.data[off:], p), nil
}

// View returns a buffer sharing [off, off+size) of b. The view is released
// together with b and must not be closed on its own.
func (b *Buffer) View(off, size int) (*Buffer, error) {
	if err := b.check(off, size); err != nil {
		return nil, err
	}
	return &Buffer{
		data:     b.data[off : off+size : off+size],
		writable: b.writable,
		mode:     b.mode,
		closed:   b.closed,
	}, nil
}

// Int32 reads a big-endian int32 at off.
func (b *Buffer) Int32(off int) (int32, error) {
	if err := b.check(off, 4); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b.data[off:])), nil
}

// PutInt32 writes a big-endian int32 at off.
func (b *Buffer) PutInt32(off int, v int32) error {
	if err := b.checkWrite(off, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b.data[off:], uint32(v))
	return nil
}

// Int64 reads a big-endian int64 at off.
func (b *Buffer) Int64(off int) (int64, error) {
	if err := b.check(off, 8); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b.data[off:])), nil
}

// PutInt64 writes a big-endian int64 at off.
func (b *Buffer) PutInt64(off int, v int64) error {
	if err := b.checkWrite(off, 8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b.data[off:], uint64(v))
	return nil
}

// Float32 reads a big-endian IEEE-754 float32 at off.
func (b *Buffer) Float32(off int) (float32, error) {
	if err := b.check(off, 4); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b.data[off:])), nil
}

// PutFloat32 writes a big-endian IEEE-754 float32 at off.
func (b *Buffer) PutFloat32(off int, v float32) error {
	if err := b.checkWrite(off, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b.data[off:], math.Float32bits(v))
	return nil
}

// Float64 reads a big-endian IEEE-754 float64 at off.
func (b *Buffer) Float64(off int) (float64, error) {
	if err := b.check(off, 8); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b.data[off:])), nil
}

// PutFloat64 writes a big-endian IEEE-754 float64 at off.
func (b *Buffer) PutFloat64(off int, v float64) error {
	if err := b.checkWrite(off, 8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b.data[off:], math.Float64bits(v))
	return nil
}

// Flush forces pending writes of a mapped buffer to storage.
// Heap buffers have nothing to flush.
func (b *Buffer) Flush() error {
	if b.closed.Load() {
		return ErrClosed
	}
	if b.flush == nil {
		return nil
	}
	return b.flush()
}

// Close releases the buffer. It is idempotent. Closing a view is a no-op.
func (b *Buffer) Close() error {
	if !b.parent {
		return nil
	}
	if b.closed.Swap(true) {
		return nil
	}
	if b.release != nil {
		return b.release()
	}
	return nil
}
