// Package metadata describes a segment's columns: data type, dictionary
// cardinality, maximum encoded entry width and which indexes exist.
//
// The segment layer treats these values as trusted input. They are stored
// next to the index files as metadata.json and decoded with the codec
// package.
package metadata
