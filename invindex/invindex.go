// Package invindex stores per-value posting lists as roaring bitmaps.
//
// Layout (big-endian): an offsets table of cardinality+1 int32 values
// followed by the portable serialization of one bitmap per dictionary ID.
// The bitmap of ID i occupies [offsets[i], offsets[i+1]) relative to the end
// of the table.
package invindex

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/dictionary"
	"github.com/hupe1980/colseg/internal/conv"
)

// ErrInvalidLayout is returned when a buffer does not hold a valid index.
var ErrInvalidLayout = errors.New("invindex: invalid layout")

// Postings builds posting lists from a forward index: the result holds, for
// every dictionary ID, the documents that reference it.
func Postings(ids []int, cardinality int) ([][]uint32, error) {
	out := make([][]uint32, cardinality)
	for doc, id := range ids {
		if id < 0 || id >= cardinality {
			return nil, &dictionary.OutOfRangeError{ID: id, Cardinality: cardinality}
		}
		d, err := conv.IntToUint32(doc)
		if err != nil {
			return nil, err
		}
		out[id] = append(out[id], d)
	}
	return out, nil
}

func bitmaps(postings [][]uint32) []*roaring.Bitmap {
	bms := make([]*roaring.Bitmap, len(postings))
	for i, docs := range postings {
		bm := roaring.BitmapOf(docs...)
		bm.RunOptimize()
		bms[i] = bm
	}
	return bms
}

// Encode serializes postings.
func Encode(postings [][]uint32) ([]byte, error) {
	bms := bitmaps(postings)
	table := 4 * (len(bms) + 1)
	out := make([]byte, table, table+int(estimate(bms)))

	off := 0
	for i, bm := range bms {
		if err := putOffset(out[4*i:], off); err != nil {
			return nil, err
		}
		data, err := bm.ToBytes()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		off += len(data)
	}
	if err := putOffset(out[4*len(bms):], off); err != nil {
		return nil, err
	}
	return out, nil
}

func putOffset(b []byte, off int) error {
	v, err := conv.IntToInt32(off)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}
	binary.BigEndian.PutUint32(b, uint32(v))
	return nil
}

func estimate(bms []*roaring.Bitmap) uint64 {
	var n uint64
	for _, bm := range bms {
		n += bm.GetSerializedSizeInBytes()
	}
	return n
}

// EncodedSize returns the number of bytes Encode produces for postings.
func EncodedSize(postings [][]uint32) int {
	return 4*(len(postings)+1) + int(estimate(bitmaps(postings)))
}

// Write encodes postings into buf, which must be at least EncodedSize bytes.
func Write(buf *buffer.Buffer, postings [][]uint32) error {
	data, err := Encode(postings)
	if err != nil {
		return err
	}
	if len(data) > buf.Size() {
		return fmt.Errorf("%w: need %d bytes, buffer has %d", ErrInvalidLayout, len(data), buf.Size())
	}
	_, err = buf.WriteAt(data, 0)
	return err
}

// Reader reads posting lists from a buffer.
type Reader struct {
	buf         *buffer.Buffer
	cardinality int
	dataStart   int
}

// Open validates the offsets table of buf.
func Open(buf *buffer.Buffer, cardinality int) (*Reader, error) {
	if cardinality < 0 {
		return nil, fmt.Errorf("%w: negative cardinality", ErrInvalidLayout)
	}
	table := 4 * (cardinality + 1)
	if table > buf.Size() {
		return nil, fmt.Errorf("%w: offsets table needs %d bytes, buffer has %d", ErrInvalidLayout, table, buf.Size())
	}
	prev := int32(0)
	for i := 0; i <= cardinality; i++ {
		off, err := buf.Int32(4 * i)
		if err != nil {
			return nil, err
		}
		if off < prev || table+int(off) > buf.Size() {
			return nil, fmt.Errorf("%w: offset %d of id %d", ErrInvalidLayout, off, i)
		}
		prev = off
	}
	return &Reader{buf: buf, cardinality: cardinality, dataStart: table}, nil
}

// Cardinality returns the number of posting lists.
func (r *Reader) Cardinality() int { return r.cardinality }

// DocIDs returns the documents containing dictionary ID id. The bitmap is a
// copy and stays valid after the buffer is closed.
func (r *Reader) DocIDs(id int) (*roaring.Bitmap, error) {
	if id < 0 || id >= r.cardinality {
		return nil, &dictionary.OutOfRangeError{ID: id, Cardinality: r.cardinality}
	}
	start, err := r.buf.Int32(4 * id)
	if err != nil {
		return nil, err
	}
	end, err := r.buf.Int32(4 * (id + 1))
	if err != nil {
		return nil, err
	}
	data := make([]byte, end-start)
	if _, err := r.buf.ReadAt(data, int64(r.dataStart)+int64(start)); err != nil {
		return nil, err
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: id %d: %v", ErrInvalidLayout, id, err)
	}
	return bm, nil
}

// Contains reports whether document doc contains dictionary ID id.
func (r *Reader) Contains(id int, doc uint32) (bool, error) {
	bm, err := r.DocIDs(id)
	if err != nil {
		return false, err
	}
	return bm.Contains(doc), nil
}
