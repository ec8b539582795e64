package hash

import (
	"hash/crc32"
)

// crc32cTable is pre-computed for the Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
// Used for small framed payloads (index map, deep-store blocks).
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}
