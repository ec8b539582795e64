// Package mmap provides memory-mapped file access for zero-copy I/O.
//
// # Overview
//
// Segment directories opened in mmap read mode hand out buffers that point
// straight into the page cache. Writer sessions map freshly allocated index
// files read-write so that callers can fill them in place; Flush forces the
// dirty pages to disk before the file is renamed into the segment.
//
// # Usage
//
//	m, err := mmap.Open("column.dict")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2), msync(2), madvise(2)
//   - Windows: CreateFileMapping/MapViewOfFile (madvise is a no-op)
//
// # Thread Safety
//
// A Mapping is safe for concurrent read access. Close is idempotent and
// protected by atomic operations. Callers must ensure no goroutine touches
// Bytes() after Close() returns.
package mmap
