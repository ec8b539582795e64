package colseg

import (
	"errors"
	"fmt"

	"github.com/hupe1980/colseg/blobstore"
	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/deepstore"
	"github.com/hupe1980/colseg/metadata"
	"github.com/hupe1980/colseg/segment"
)

var (
	// ErrNotFound is returned when a column, index, segment or pushed version
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned when a closed segment or session is used.
	ErrClosed = errors.New("closed")
	// ErrBusy is returned when a session cannot be opened because of another
	// open session.
	ErrBusy = errors.New("segment busy")
	// ErrCorrupted is returned when stored data fails an integrity check.
	ErrCorrupted = errors.New("corrupted")
)

// ErrColumnNotFound indicates a column missing from the segment metadata.
type ErrColumnNotFound struct {
	Column string
}

func (e *ErrColumnNotFound) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

func (e *ErrColumnNotFound) Unwrap() error { return ErrNotFound }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	switch {
	case errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, segment.ErrIndexNotFound),
		errors.Is(err, segment.ErrStarTreeNotFound),
		errors.Is(err, metadata.ErrNotFound),
		errors.Is(err, deepstore.ErrNotFound),
		errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Lifecycle and integrity normalization.
	switch {
	case errors.Is(err, segment.ErrUseAfterClose), errors.Is(err, buffer.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, segment.ErrSessionConflict):
		return fmt.Errorf("%w: %w", ErrBusy, err)
	case errors.Is(err, segment.ErrCorrupted), errors.Is(err, deepstore.ErrChecksumMismatch):
		return fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	return err
}
