// Package deepstore copies committed segments to and from a blob store.
//
// A push uploads every committed file of a segment directory under a new
// version prefix and then advances the segment's CURRENT pointer:
//
//	<name>/v<N>/<file>            framed, optionally compressed file data
//	<name>/v<N>/descriptor.json   file list with sizes and checksums
//	<name>/CURRENT                "v<N>"
//
// Files are split into blocks of DefaultBlockSize bytes. Each block carries
// its uncompressed size and a CRC32C of the stored bytes. Fetch verifies
// both and the HighwayHash of every file before the downloaded segment
// replaces the local directory.
//
// A reader session is held for the duration of a push, so no writer can
// commit while files are being copied.
package deepstore
