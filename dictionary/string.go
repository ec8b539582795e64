package dictionary

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/metadata"
)

// StringDictionary reads a dictionary of padded fixed-width strings.
type StringDictionary struct {
	records   *SortedBuffer
	codec     FixedWidth
	nullToken string
}

var _ Reader = (*StringDictionary)(nil)

// NewStringDictionary wraps buf, which holds cardinality records of
// codec.Width bytes.
func NewStringDictionary(buf *buffer.Buffer, cardinality int, codec FixedWidth, nullToken string) (*StringDictionary, error) {
	records, err := NewSortedBuffer(buf, cardinality, codec.Width)
	if err != nil {
		return nil, err
	}
	if nullToken == "" {
		nullToken = DefaultNullToken
	}
	return &StringDictionary{records: records, codec: codec, nullToken: nullToken}, nil
}

// Length returns the number of distinct values.
func (d *StringDictionary) Length() int { return d.records.Len() }

// DataType returns metadata.String.
func (d *StringDictionary) DataType() metadata.DataType { return metadata.String }

// IndexOf accepts string, []byte, fmt.Stringer or any value formatted with
// fmt.Sprint.
func (d *StringDictionary) IndexOf(raw any) int {
	var value []byte
	switch v := raw.(type) {
	case string:
		value = []byte(v)
	case []byte:
		value = v
	case fmt.Stringer:
		value = []byte(v.String())
	case nil:
		return NotFound
	default:
		value = []byte(fmt.Sprint(v))
	}
	// Longer values cannot be stored; encoding would truncate them into a
	// false match.
	if len(value) > d.codec.Width {
		return NotFound
	}
	// Records are ordered by their decoded values, which differs from the
	// padded byte order whenever the pad sorts above a value byte.
	return d.records.Search(func(record []byte) int {
		return bytes.Compare(d.codec.Decode(record), value)
	})
}

// Get returns the decoded string, or the null token for the null sentinel.
func (d *StringDictionary) Get(id int) any {
	return d.ToString(id)
}

// ToString returns the decoded string, or the null token for -1 and ids
// past the end. Other ids and reads from a released buffer panic, like an
// out-of-bounds slice access.
func (d *StringDictionary) ToString(id int) string {
	record, err := d.records.RecordAt(id)
	if err != nil {
		if isNullID(id, d.records.Len(), err) {
			return d.nullToken
		}
		panic(fmt.Sprintf("dictionary: id %d: %v", id, err))
	}
	return d.codec.DecodeString(record)
}

// isNullID reports whether id denotes the null sentinel: -1 or any id at or
// past cardinality.
func isNullID(id, cardinality int, err error) bool {
	var oor *OutOfRangeError
	if !errors.As(err, &oor) {
		return false
	}
	return id == -1 || id >= cardinality
}

// StringValue returns the decoded string. Unlike Get it does not substitute
// the null token; an invalid id yields ErrOutOfRange.
func (d *StringDictionary) StringValue(id int) (string, error) {
	record, err := d.records.RecordAt(id)
	if err != nil {
		return "", err
	}
	return d.codec.DecodeString(record), nil
}

// LongValue always fails: strings are not numerically coercible.
func (d *StringDictionary) LongValue(int) (int64, error) {
	return 0, conversionError("string", "long")
}

// DoubleValue always fails: strings are not numerically coercible.
func (d *StringDictionary) DoubleValue(int) (float64, error) {
	return 0, conversionError("string", "double")
}
