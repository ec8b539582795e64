package deepstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	currentName    = "CURRENT"
	descriptorName = "descriptor.json"
)

// ErrInvalidDescriptor is returned when a descriptor or pointer cannot be parsed.
var ErrInvalidDescriptor = errors.New("deepstore: invalid descriptor")

// Descriptor lists the files of one pushed version.
type Descriptor struct {
	Name        string      `json:"name"`
	Version     uint64      `json:"version"`
	Codec       string      `json:"codec"`
	Compression Compression `json:"compression"`
	BlockSize   int         `json:"block_size"`
	CreatedAt   time.Time   `json:"created_at"`
	Files       []FileEntry `json:"files"`
}

// FileEntry describes one pushed file.
type FileEntry struct {
	Name string `json:"name"`
	// Size is the uncompressed size.
	Size int64 `json:"size"`
	// StoredSize is the size of the framed blob.
	StoredSize int64 `json:"stored_size"`
	// Checksum is the HighwayHash-64 of the uncompressed file.
	Checksum uint64 `json:"checksum"`
}

// Size returns the uncompressed bytes of all files.
func (d *Descriptor) Size() int64 {
	var n int64
	for _, f := range d.Files {
		n += f.Size
	}
	return n
}

// StoredSize returns the bytes held by the blob store.
func (d *Descriptor) StoredSize() int64 {
	var n int64
	for _, f := range d.Files {
		n += f.StoredSize
	}
	return n
}

func (d *Descriptor) validate() error {
	if d.Version == 0 || d.BlockSize <= 0 {
		return fmt.Errorf("%w: version %d, block size %d", ErrInvalidDescriptor, d.Version, d.BlockSize)
	}
	for _, f := range d.Files {
		if f.Name == "" || strings.ContainsAny(f.Name, `/\`) || f.Size < 0 {
			return fmt.Errorf("%w: file %q", ErrInvalidDescriptor, f.Name)
		}
	}
	return nil
}

func versionDir(name string, version uint64) string {
	return name + "/v" + strconv.FormatUint(version, 10)
}

func pointerName(name string) string {
	return name + "/" + currentName
}

// parseVersion parses "v<N>".
func parseVersion(s string) (uint64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "v")
	if !ok {
		return 0, fmt.Errorf("%w: version %q", ErrInvalidDescriptor, s)
	}
	v, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: version %q", ErrInvalidDescriptor, s)
	}
	return v, nil
}
