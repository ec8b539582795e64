package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotFound is returned when no buffer exists for a (column, type) pair.
	ErrIndexNotFound = errors.New("segment: index not found")
	// ErrStarTreeNotFound is returned when the segment has no star-tree stream.
	ErrStarTreeNotFound = errors.New("segment: star tree not found")
	// ErrUnsupportedOperation is returned when the directory does not support an operation.
	ErrUnsupportedOperation = errors.New("segment: unsupported operation")
	// ErrSessionConflict is returned when a session cannot be opened because of
	// another open session.
	ErrSessionConflict = errors.New("segment: session conflict")
	// ErrUseAfterClose is returned when a closed session or directory is used.
	ErrUseAfterClose = errors.New("segment: use after close")
	// ErrCommitFailure is returned when SaveAndClose fails.
	ErrCommitFailure = errors.New("segment: commit failed")
	// ErrInvalidSize is returned when a buffer is requested with a non-positive size.
	ErrInvalidSize = errors.New("segment: invalid buffer size")
	// ErrInvalidColumn is returned for column names that cannot be used as file names.
	ErrInvalidColumn = errors.New("segment: invalid column name")
	// ErrInvalidIndexType is returned for unknown ColumnIndexType values.
	ErrInvalidIndexType = errors.New("segment: invalid column index type")
	// ErrCorrupted is returned when stored files do not match the index map.
	ErrCorrupted = errors.New("segment: corrupted")
)

// IndexError records a failed operation on one column index.
type IndexError struct {
	Op     string
	Column string
	Type   ColumnIndexType
	Err    error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("segment: %s %s/%s: %v", e.Op, e.Column, e.Type, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// CommitError records the step at which a commit failed. Column and Type are
// empty for steps that are not specific to one index.
type CommitError struct {
	Op     string
	Column string
	Type   ColumnIndexType
	Err    error
}

func (e *CommitError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("segment: commit failed at %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("segment: commit failed at %s %s/%s: %v", e.Op, e.Column, e.Type, e.Err)
}

// Unwrap returns both ErrCommitFailure and the cause.
func (e *CommitError) Unwrap() []error { return []error{ErrCommitFailure, e.Err} }
