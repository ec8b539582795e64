// Package buffer provides the raw byte backend behind every column index.
//
// A Buffer is a fixed-size, byte-addressable region that is either resident
// on the Go heap or backed by a memory-mapped file, selected by ReadMode.
// Multi-byte accessors use big-endian order, the on-disk order of all
// segment indexes.
//
// Buffers handed out by a segment session are borrowed: they become unusable
// once the session is closed, after which every accessor reports ErrClosed.
package buffer
