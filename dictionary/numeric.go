package dictionary

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/metadata"
)

type number interface {
	~int32 | ~int64 | ~float32 | ~float64
}

// NumericDictionary reads a dictionary of big-endian fixed-size numbers.
type NumericDictionary[T number] struct {
	records   *SortedBuffer
	dataType  metadata.DataType
	decode    func([]byte) T
	convert   func(any) (T, bool)
	format    func(T) string
	nullToken string
}

var (
	_ Reader = (*NumericDictionary[int32])(nil)
	_ Reader = (*NumericDictionary[float64])(nil)
)

func newNumeric[T number](buf *buffer.Buffer, cardinality int, dt metadata.DataType, nullToken string,
	decode func([]byte) T, convert func(any) (T, bool), format func(T) string) (*NumericDictionary[T], error) {
	records, err := NewSortedBuffer(buf, cardinality, dt.Size())
	if err != nil {
		return nil, err
	}
	if nullToken == "" {
		nullToken = DefaultNullToken
	}
	return &NumericDictionary[T]{
		records:   records,
		dataType:  dt,
		decode:    decode,
		convert:   convert,
		format:    format,
		nullToken: nullToken,
	}, nil
}

// NewIntDictionary reads 4 byte signed integers.
func NewIntDictionary(buf *buffer.Buffer, cardinality int, nullToken string) (*NumericDictionary[int32], error) {
	return newNumeric(buf, cardinality, metadata.Int, nullToken,
		func(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) },
		func(raw any) (int32, bool) {
			i, ok := toInt64(raw)
			if !ok || i < math.MinInt32 || i > math.MaxInt32 {
				return 0, false
			}
			return int32(i), true
		},
		func(v int32) string { return strconv.FormatInt(int64(v), 10) })
}

// NewLongDictionary reads 8 byte signed integers.
func NewLongDictionary(buf *buffer.Buffer, cardinality int, nullToken string) (*NumericDictionary[int64], error) {
	return newNumeric(buf, cardinality, metadata.Long, nullToken,
		func(b []byte) int64 { return int64(binary.BigEndian.Uint64(b)) },
		toInt64,
		func(v int64) string { return strconv.FormatInt(v, 10) })
}

// NewFloatDictionary reads IEEE 754 single precision values.
func NewFloatDictionary(buf *buffer.Buffer, cardinality int, nullToken string) (*NumericDictionary[float32], error) {
	return newNumeric(buf, cardinality, metadata.Float, nullToken,
		func(b []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(b)) },
		func(raw any) (float32, bool) {
			f, ok := toFloat64(raw)
			return float32(f), ok
		},
		func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) })
}

// NewDoubleDictionary reads IEEE 754 double precision values.
func NewDoubleDictionary(buf *buffer.Buffer, cardinality int, nullToken string) (*NumericDictionary[float64], error) {
	return newNumeric(buf, cardinality, metadata.Double, nullToken,
		func(b []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(b)) },
		toFloat64,
		func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) })
}

// Length returns the number of distinct values.
func (d *NumericDictionary[T]) Length() int { return d.records.Len() }

// DataType returns the numeric type of the dictionary.
func (d *NumericDictionary[T]) DataType() metadata.DataType { return d.dataType }

// IndexOf accepts any Go integer or float, or a numeric string. Values that
// do not convert exactly to the dictionary type are NotFound.
func (d *NumericDictionary[T]) IndexOf(raw any) int {
	key, ok := d.convert(raw)
	if !ok {
		return NotFound
	}
	return d.records.Search(func(record []byte) int {
		return cmp.Compare(d.decode(record), key)
	})
}

// Value returns the typed value for id.
func (d *NumericDictionary[T]) Value(id int) (T, error) {
	record, err := d.records.RecordAt(id)
	if err != nil {
		return 0, err
	}
	return d.decode(record), nil
}

// Get returns the typed value, or nil for the null sentinel.
func (d *NumericDictionary[T]) Get(id int) any {
	v, err := d.Value(id)
	if err != nil {
		d.mustBeNull(id, err)
		return nil
	}
	return v
}

// ToString formats the value, or returns the null token for the null
// sentinel.
func (d *NumericDictionary[T]) ToString(id int) string {
	s, err := d.StringValue(id)
	if err != nil {
		d.mustBeNull(id, err)
		return d.nullToken
	}
	return s
}

func (d *NumericDictionary[T]) mustBeNull(id int, err error) {
	if !isNullID(id, d.records.Len(), err) {
		panic(fmt.Sprintf("dictionary: id %d: %v", id, err))
	}
}

// StringValue formats the value.
func (d *NumericDictionary[T]) StringValue(id int) (string, error) {
	v, err := d.Value(id)
	if err != nil {
		return "", err
	}
	return d.format(v), nil
}

// LongValue returns the value converted to int64. Floating point values are
// truncated toward zero.
func (d *NumericDictionary[T]) LongValue(id int) (int64, error) {
	v, err := d.Value(id)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// DoubleValue returns the value converted to float64.
func (d *NumericDictionary[T]) DoubleValue(id int) (float64, error) {
	v, err := d.Value(id)
	if err != nil {
		return 0, err
	}
	return float64(v), nil
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return floatToInt64(f)
		}
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	if i, ok := toInt64(raw); ok {
		return float64(i), true
	}
	return 0, false
}
