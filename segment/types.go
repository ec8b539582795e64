package segment

import (
	"fmt"
	"strings"
)

// ColumnIndexType identifies the kind of index stored for a column.
type ColumnIndexType uint8

const (
	Dictionary ColumnIndexType = iota + 1
	ForwardIndex
	InvertedIndex
)

// IndexTypes lists all index types in file order.
var IndexTypes = []ColumnIndexType{Dictionary, ForwardIndex, InvertedIndex}

func (t ColumnIndexType) String() string {
	switch t {
	case Dictionary:
		return "DICTIONARY"
	case ForwardIndex:
		return "FORWARD_INDEX"
	case InvertedIndex:
		return "INVERTED_INDEX"
	default:
		return fmt.Sprintf("ColumnIndexType(%d)", uint8(t))
	}
}

// Valid reports whether t is a known index type.
func (t ColumnIndexType) Valid() bool {
	return t >= Dictionary && t <= InvertedIndex
}

// Extension returns the file extension used for t.
func (t ColumnIndexType) Extension() string {
	switch t {
	case Dictionary:
		return ".dict"
	case ForwardIndex:
		return ".fwd"
	case InvertedIndex:
		return ".inv"
	}
	return ""
}

// ParseColumnIndexType parses the String form of an index type.
func ParseColumnIndexType(s string) (ColumnIndexType, error) {
	for _, t := range IndexTypes {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("segment: unknown column index type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnIndexType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("segment: invalid column index type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ColumnIndexType) UnmarshalText(text []byte) error {
	v, err := ParseColumnIndexType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

const (
	indexMapFile = "index_map"
	starTreeFile = "star_tree.bin"
	stagingDir   = ".staging"
)

type indexKey struct {
	column string
	typ    ColumnIndexType
}

func (k indexKey) fileName() string {
	return k.column + k.typ.Extension()
}

func compareKeys(a, b indexKey) int {
	if c := strings.Compare(a.column, b.column); c != 0 {
		return c
	}
	return int(a.typ) - int(b.typ)
}

// parseFileName maps an index file name back to its key.
func parseFileName(name string) (indexKey, bool) {
	for _, t := range IndexTypes {
		if col, ok := strings.CutSuffix(name, t.Extension()); ok && validColumn(col) {
			return indexKey{column: col, typ: t}, true
		}
	}
	return indexKey{}, false
}

func validColumn(column string) bool {
	return column != "" && column != "." && column != ".." &&
		!strings.ContainsAny(column, `/\`+"\x00") && !strings.HasPrefix(column, ".")
}
