package dictionary

import (
	"fmt"

	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/metadata"
)

// Reader looks up and decodes the values of one column dictionary.
//
// Implementations are safe for concurrent use while the underlying buffer
// is open.
type Reader interface {
	// Length returns the number of distinct values.
	Length() int
	// IndexOf returns the ID of raw, or NotFound.
	IndexOf(raw any) int
	// Get returns the value for id in its natural Go type. The null
	// sentinel renders as the null token for strings and nil for numbers.
	Get(id int) any
	// StringValue returns the decoded value as a string.
	StringValue(id int) (string, error)
	// LongValue returns the value as int64.
	LongValue(id int) (int64, error)
	// DoubleValue returns the value as float64.
	DoubleValue(id int) (float64, error)
	// ToString renders the value for display, using the null token for the
	// null sentinel.
	ToString(id int) string
	// DataType returns the value domain of the dictionary.
	DataType() metadata.DataType
}

// Config describes how to interpret a dictionary buffer.
type Config struct {
	DataType    metadata.DataType
	Cardinality int
	// EntryWidth is the padded record width of string dictionaries.
	// Numeric dictionaries derive it from DataType.
	EntryWidth int
	Pad        byte
	// NullToken replaces DefaultNullToken when non-empty.
	NullToken string
}

// ConfigFor builds a Config from column metadata.
func ConfigFor(col metadata.Column, pad byte, nullToken string) Config {
	return Config{
		DataType:    col.DataType,
		Cardinality: col.Cardinality,
		EntryWidth:  col.EntryWidth(),
		Pad:         pad,
		NullToken:   nullToken,
	}
}

func (c Config) nullToken() string {
	if c.NullToken == "" {
		return DefaultNullToken
	}
	return c.NullToken
}

// Open returns the Reader matching cfg.DataType over buf.
func Open(buf *buffer.Buffer, cfg Config) (Reader, error) {
	switch cfg.DataType {
	case metadata.String:
		return NewStringDictionary(buf, cfg.Cardinality, FixedWidth{Width: cfg.EntryWidth, Pad: cfg.Pad}, cfg.nullToken())
	case metadata.Int:
		return NewIntDictionary(buf, cfg.Cardinality, cfg.nullToken())
	case metadata.Long:
		return NewLongDictionary(buf, cfg.Cardinality, cfg.nullToken())
	case metadata.Float:
		return NewFloatDictionary(buf, cfg.Cardinality, cfg.nullToken())
	case metadata.Double:
		return NewDoubleDictionary(buf, cfg.Cardinality, cfg.nullToken())
	default:
		return nil, fmt.Errorf("dictionary: unsupported data type %q", cfg.DataType)
	}
}
