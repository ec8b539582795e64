package dictionary

import (
	"errors"
	"fmt"
)

const (
	// NotFound is returned by IndexOf when a value is not in the dictionary.
	NotFound = -1
	// DefaultNullToken is the display form of the null sentinel ID.
	DefaultNullToken = "null"
)

var (
	// ErrOutOfRange is returned when an ID is outside [0, Length()).
	ErrOutOfRange = errors.New("dictionary: id out of range")
	// ErrUnsupportedConversion is returned when a value cannot be converted
	// to the requested type.
	ErrUnsupportedConversion = errors.New("dictionary: unsupported conversion")
	// ErrInvalidLayout is returned when a buffer is too small for the
	// declared cardinality and record width.
	ErrInvalidLayout = errors.New("dictionary: invalid layout")
)

// OutOfRangeError reports the offending ID.
type OutOfRangeError struct {
	ID          int
	Cardinality int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("dictionary: id %d out of range [0, %d)", e.ID, e.Cardinality)
}

// Unwrap returns ErrOutOfRange.
func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

func conversionError(from, to string) error {
	return fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, from, to)
}
