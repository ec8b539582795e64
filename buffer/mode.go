package buffer

import (
	"fmt"
	"strings"
)

// ReadMode selects how committed index buffers are brought into memory.
type ReadMode int

const (
	// ReadModeMmap maps index files into the address space.
	ReadModeMmap ReadMode = iota
	// ReadModeHeap copies index files onto the Go heap.
	ReadModeHeap
)

// String returns the canonical name of the mode.
func (m ReadMode) String() string {
	switch m {
	case ReadModeMmap:
		return "mmap"
	case ReadModeHeap:
		return "heap"
	default:
		return fmt.Sprintf("ReadMode(%d)", int(m))
	}
}

// ParseReadMode parses "mmap" or "heap" (case-insensitive).
func ParseReadMode(s string) (ReadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mmap", "":
		return ReadModeMmap, nil
	case "heap":
		return ReadModeHeap, nil
	default:
		return 0, fmt.Errorf("buffer: unknown read mode %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ReadMode) UnmarshalText(text []byte) error {
	v, err := ParseReadMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m ReadMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
