// Package segment manages the column index buffers of one segment on local
// storage.
//
// A Directory hands out sessions. Any number of Reader sessions may be open
// at once, or exactly one Writer session, never both. Session creation never
// blocks: a conflicting request fails with ErrSessionConflict and the caller
// decides whether to retry.
//
// Buffers are identified by (column, ColumnIndexType) and stored one file per
// pair. A Writer stages new or replacement buffers and removals in a scratch
// directory; they become visible to other sessions only after SaveAndClose.
// The commit is not atomic. A failure part way through leaves the directory
// in an unspecified state and is reported as ErrCommitFailure; Verify can be
// used to detect files that no longer match the index map.
//
// Layout:
//
//	<segment>/
//	  <column>.dict   dictionary
//	  <column>.fwd    forward index
//	  <column>.inv    inverted index
//	  star_tree.bin   optional star-tree stream
//	  index_map       committed buffers, sizes and checksums
//	  .staging/       writer scratch space
package segment
