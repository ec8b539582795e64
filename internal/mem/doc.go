// Package mem allocates heap memory for index buffers.
//
// Heap-mode buffers start on a cache-line boundary, like mapped files,
// so the alignment of typed records does not depend on the read mode.
package mem
