package hash

import (
	stdhash "hash"
	"io"

	"github.com/minio/highwayhash"
)

// bufferKey is fixed so checksums stay comparable across processes.
var bufferKey = []byte("colseg-index-buffer-checksum-key")

// Checksum64 computes the 64-bit HighwayHash of data.
func Checksum64(data []byte) uint64 {
	return highwayhash.Sum64(data, bufferKey)
}

// New64 returns a streaming hasher producing Checksum64 values.
func New64() stdhash.Hash64 {
	h, err := highwayhash.New64(bufferKey)
	if err != nil {
		// Only returned for a key that is not 32 bytes.
		panic(err)
	}
	return h
}

// ChecksumReader computes the 64-bit HighwayHash of everything read from r.
func ChecksumReader(r io.Reader) (uint64, error) {
	h := New64()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
