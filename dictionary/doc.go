// Package dictionary implements read access to sorted dictionary buffers.
//
// A dictionary maps the distinct values of a column to dense surrogate IDs
// 0..Length()-1. Records are stored sorted by value with a fixed width, so
// lookups are binary searches over the raw buffer and decoding never copies
// more than one record.
//
// String dictionaries right-pad each value with a pad byte up to the
// column's maximum entry width (see FixedWidth). Numeric dictionaries store
// big-endian 4 or 8 byte values and need no padding.
//
// The ID -1 and any ID >= Length() act as the null sentinel. Get and
// ToString render it as the configured null token, while the typed
// accessors (StringValue, LongValue, DoubleValue) return ErrOutOfRange.
// Callers that display values use Get; callers that compute with them use
// the typed accessors.
//
// Get and ToString panic for any other ID below -1 and for reads after the
// buffer was released, the same way an out-of-bounds slice access does.
package dictionary
