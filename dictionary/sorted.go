package dictionary

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/colseg/buffer"
)

// SortedBuffer is a read-only view of cardinality fixed-width records stored
// in ascending order. It is safe for concurrent use.
type SortedBuffer struct {
	buf         *buffer.Buffer
	cardinality int
	width       int
}

// NewSortedBuffer wraps buf. The buffer must hold at least
// cardinality*width bytes.
func NewSortedBuffer(buf *buffer.Buffer, cardinality, width int) (*SortedBuffer, error) {
	if cardinality < 0 || width < 0 || (cardinality > 0 && width == 0) {
		return nil, fmt.Errorf("%w: cardinality %d width %d", ErrInvalidLayout, cardinality, width)
	}
	if cardinality > 0 && buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrInvalidLayout)
	}
	if buf != nil && cardinality*width > buf.Size() {
		return nil, fmt.Errorf("%w: %d records of %d bytes need %d bytes, buffer has %d",
			ErrInvalidLayout, cardinality, width, cardinality*width, buf.Size())
	}
	return &SortedBuffer{buf: buf, cardinality: cardinality, width: width}, nil
}

// Len returns the number of records.
func (s *SortedBuffer) Len() int { return s.cardinality }

// Width returns the record width in bytes.
func (s *SortedBuffer) Width() int { return s.width }

// RecordAt returns the raw record for id. The slice aliases the buffer and
// is only valid while the buffer is open.
func (s *SortedBuffer) RecordAt(id int) ([]byte, error) {
	if id < 0 || id >= s.cardinality {
		return nil, &OutOfRangeError{ID: id, Cardinality: s.cardinality}
	}
	data := s.buf.Bytes()
	if data == nil {
		return nil, buffer.ErrClosed
	}
	off := id * s.width
	return data[off : off+s.width : off+s.width], nil
}

// SearchEncoded returns the ID of the record equal to key, compared byte by
// byte, or NotFound. key must already be encoded to the record width.
func (s *SortedBuffer) SearchEncoded(key []byte) int {
	if len(key) != s.width {
		return NotFound
	}
	return s.Search(func(record []byte) int { return bytes.Compare(record, key) })
}

// Search binary searches the records with cmp, which reports how a record
// orders relative to the wanted value (<0 before, 0 equal, >0 after).
// It returns NotFound when no record compares equal or the buffer is closed.
func (s *SortedBuffer) Search(cmp func(record []byte) int) int {
	if s.cardinality == 0 {
		return NotFound
	}
	data := s.buf.Bytes()
	if data == nil {
		return NotFound
	}
	lo, hi := 0, s.cardinality
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		off := mid * s.width
		switch c := cmp(data[off : off+s.width]); {
		case c == 0:
			return mid
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return NotFound
}
