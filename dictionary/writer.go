package dictionary

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/metadata"
)

// SortedUnique returns the distinct values in ascending order. The input is
// not modified. NaNs sort first and collapse into a single entry.
func SortedUnique[T cmp.Ordered](values []T) []T {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.CompactFunc(out, func(a, b T) bool { return cmp.Compare(a, b) == 0 })
}

// StringWidth returns the encoded width needed for values.
func StringWidth(values []string) int {
	width := 0
	for _, v := range values {
		width = max(width, len(v))
	}
	return width
}

// EncodedSize returns the buffer size for a dictionary of cardinality
// entries. width is only used for string dictionaries.
func EncodedSize(dt metadata.DataType, cardinality, width int) int {
	if dt == metadata.String {
		return cardinality * width
	}
	return cardinality * dt.Size()
}

// WriteString sorts and dedupes values, writes them padded to codec.Width and
// returns the distinct values in ID order.
func WriteString(buf *buffer.Buffer, values []string, codec FixedWidth) ([]string, error) {
	dict := SortedUnique(values)
	if w := StringWidth(dict); w > codec.Width {
		return nil, fmt.Errorf("%w: value of %d bytes exceeds width %d", ErrInvalidLayout, w, codec.Width)
	}
	if need := len(dict) * codec.Width; need > buf.Size() {
		return nil, fmt.Errorf("%w: need %d bytes, buffer has %d", ErrInvalidLayout, need, buf.Size())
	}
	for i, v := range dict {
		if _, err := buf.WriteAt(codec.EncodeString(v), int64(i*codec.Width)); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

// WriteInt writes a sorted INT dictionary.
func WriteInt(buf *buffer.Buffer, values []int32) ([]int32, error) {
	return writeNumeric(buf, values, 4, buf.PutInt32)
}

// WriteLong writes a sorted LONG dictionary.
func WriteLong(buf *buffer.Buffer, values []int64) ([]int64, error) {
	return writeNumeric(buf, values, 8, buf.PutInt64)
}

// WriteFloat writes a sorted FLOAT dictionary.
func WriteFloat(buf *buffer.Buffer, values []float32) ([]float32, error) {
	return writeNumeric(buf, values, 4, buf.PutFloat32)
}

// WriteDouble writes a sorted DOUBLE dictionary.
func WriteDouble(buf *buffer.Buffer, values []float64) ([]float64, error) {
	return writeNumeric(buf, values, 8, buf.PutFloat64)
}

func writeNumeric[T cmp.Ordered](buf *buffer.Buffer, values []T, size int, put func(int, T) error) ([]T, error) {
	dict := SortedUnique(values)
	if need := len(dict) * size; need > buf.Size() {
		return nil, fmt.Errorf("%w: need %d bytes, buffer has %d", ErrInvalidLayout, need, buf.Size())
	}
	for i, v := range dict {
		if err := put(i*size, v); err != nil {
			return nil, err
		}
	}
	return dict, nil
}
