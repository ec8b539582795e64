package metadata

import (
	"fmt"
	"strings"
)

// DataType is the value domain of a column.
type DataType string

const (
	Int    DataType = "INT"
	Long   DataType = "LONG"
	Float  DataType = "FLOAT"
	Double DataType = "DOUBLE"
	String DataType = "STRING"
)

// ParseDataType parses a data type name (case-insensitive).
func ParseDataType(s string) (DataType, error) {
	dt := DataType(strings.ToUpper(strings.TrimSpace(s)))
	if !dt.Valid() {
		return "", fmt.Errorf("metadata: unknown data type %q", s)
	}
	return dt, nil
}

// Valid reports whether d is a supported data type.
func (d DataType) Valid() bool {
	switch d {
	case Int, Long, Float, Double, String:
		return true
	}
	return false
}

// Numeric reports whether d is one of the fixed-size numeric types.
func (d DataType) Numeric() bool {
	return d.Valid() && d != String
}

// Size returns the encoded width of a numeric value, or 0 for variable-width types.
func (d DataType) Size() int {
	switch d {
	case Int, Float:
		return 4
	case Long, Double:
		return 8
	}
	return 0
}
