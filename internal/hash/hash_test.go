package hash

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32C(t *testing.T) {
	// RFC 3720 test vector
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))
}

func TestChecksum64(t *testing.T) {
	data := []byte("apple\x00kiwi\x00\x00pear\x00")

	a := Checksum64(data)
	assert.Equal(t, a, Checksum64(append([]byte(nil), data...)))

	data[0] = 'A'
	assert.NotEqual(t, a, Checksum64(data))
}

func TestChecksumReaderMatchesOneShot(t *testing.T) {
	data := bytes.Repeat([]byte("dictionary"), 1000)

	sum, err := ChecksumReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Checksum64(data), sum)
}

func TestNew64Streaming(t *testing.T) {
	h := New64()
	_, _ = h.Write([]byte("apple"))
	_, _ = h.Write([]byte("kiwi"))
	assert.Equal(t, Checksum64([]byte("applekiwi")), h.Sum64())
}
