// Package hash provides the checksums used by segment persistence.
//
//   - CRC32C frames small self-describing payloads such as the index map
//     header, compressed deep-store blocks and S3 upload checksums.
//   - Checksum64 (HighwayHash-64) fingerprints whole index buffers so that
//     an integrity check can tell a committed buffer from a torn one.
//
// Usage:
//
//	crc := hash.CRC32C(payload)
//	sum := hash.Checksum64(buf.Bytes())
package hash
