package mmap

import (
	"io"
	"os"
	"sync/atomic"
)

// Mapping represents a memory-mapped file.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data     []byte
	size     int
	writable bool
	closed   atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func([]byte) error
}

// Open maps the file at path into memory.
// The file is mapped as read-only.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size < 0 {
		return nil, ErrInvalidSize
	}
	return Map(f, int(size), false)
}

// Fder is implemented by open files that expose their descriptor (*os.File).
type Fder interface {
	Fd() uintptr
}

// Map maps the first size bytes of an open file.
//
// Writable mappings are shared: stores through Bytes() reach the file once
// flushed or unmapped. The file must already be at least size bytes long.
// The mapping stays valid after the file is closed.
func Map(f Fder, size int, writable bool) (*Mapping, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if size == 0 {
		return &Mapping{writable: writable}, nil
	}

	// Platform-specific mapping
	data, unmapFunc, err := osMap(f, size, writable)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:     data,
		size:     size,
		writable: writable,
		unmap:    unmapFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the underlying byte slice.
// Warning: The slice is valid only until Close() is called.
// Accessing the slice after Close() results in undefined behavior (likely a crash).
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Writable reports whether the mapping was created read-write.
func (m *Mapping) Writable() bool {
	return m.writable
}

// Flush synchronously writes dirty pages of a writable mapping back to the file.
func (m *Mapping) Flush() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.writable || m.data == nil {
		return nil
	}
	return osFlush(m.data)
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return osAdvise(m.data, pattern)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (n int, err error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
