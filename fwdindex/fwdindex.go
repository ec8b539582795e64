// Package fwdindex implements a single-value forward index: for each
// document, the dictionary ID of its value, packed into a fixed number of
// bits (most significant bit first).
package fwdindex

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/hupe1980/colseg/buffer"
)

var (
	// ErrInvalidLayout is returned when a buffer is too small for the index.
	ErrInvalidLayout = errors.New("fwdindex: invalid layout")
	// ErrDocOutOfRange is returned for document IDs outside [0, Len()).
	ErrDocOutOfRange = errors.New("fwdindex: document out of range")
)

// BitsFor returns the bits needed to store IDs in [0, cardinality).
func BitsFor(cardinality int) int {
	if cardinality <= 1 {
		return 1
	}
	return bits.Len(uint(cardinality - 1))
}

// EncodedSize returns the buffer size for numDocs values of width bits.
func EncodedSize(numDocs, width int) int {
	return (numDocs*width + 7) / 8
}

// Write packs ids into buf using width bits each.
func Write(buf *buffer.Buffer, ids []int, width int) error {
	if width < 1 || width > 31 {
		return fmt.Errorf("%w: width %d", ErrInvalidLayout, width)
	}
	if need := EncodedSize(len(ids), width); need > buf.Size() {
		return fmt.Errorf("%w: need %d bytes, buffer has %d", ErrInvalidLayout, need, buf.Size())
	}
	if !buf.Writable() {
		return buffer.ErrReadOnly
	}
	data := buf.Bytes()
	if data == nil && len(ids) > 0 {
		return buffer.ErrClosed
	}
	limit := 1 << width
	for doc, id := range ids {
		if id < 0 || id >= limit {
			return fmt.Errorf("%w: id %d of document %d does not fit %d bits", ErrInvalidLayout, id, doc, width)
		}
		pos := doc * width
		for i := width - 1; i >= 0; i-- {
			mask := byte(1) << (7 - pos%8)
			if id>>i&1 == 1 {
				data[pos/8] |= mask
			} else {
				data[pos/8] &^= mask
			}
			pos++
		}
	}
	return nil
}

// Reader reads a packed forward index.
type Reader struct {
	buf     *buffer.Buffer
	numDocs int
	width   int
}

// Open wraps buf holding numDocs values of width bits.
func Open(buf *buffer.Buffer, numDocs, width int) (*Reader, error) {
	if width < 1 || width > 31 || numDocs < 0 {
		return nil, fmt.Errorf("%w: %d documents of %d bits", ErrInvalidLayout, numDocs, width)
	}
	if need := EncodedSize(numDocs, width); need > buf.Size() {
		return nil, fmt.Errorf("%w: need %d bytes, buffer has %d", ErrInvalidLayout, need, buf.Size())
	}
	return &Reader{buf: buf, numDocs: numDocs, width: width}, nil
}

// Len returns the number of documents.
func (r *Reader) Len() int { return r.numDocs }

// Get returns the dictionary ID of doc.
func (r *Reader) Get(doc int) (int, error) {
	if doc < 0 || doc >= r.numDocs {
		return 0, fmt.Errorf("%w: %d of %d", ErrDocOutOfRange, doc, r.numDocs)
	}
	data := r.buf.Bytes()
	if data == nil {
		return 0, buffer.ErrClosed
	}
	pos := doc * r.width
	id := 0
	for i := 0; i < r.width; i++ {
		id = id<<1 | int(data[pos/8]>>(7-pos%8)&1)
		pos++
	}
	return id, nil
}
