package dictionary

import "bytes"

// FixedWidth pads values to a fixed record width and strips the padding on
// decode.
//
// The pad byte must not occur inside values; this is not checked. Values
// longer than Width are truncated by Encode.
type FixedWidth struct {
	Width int
	Pad   byte
}

// Encode returns value right-padded with Pad to exactly Width bytes.
func (f FixedWidth) Encode(value []byte) []byte {
	out := make([]byte, f.Width)
	n := copy(out, value)
	if f.Pad != 0 {
		for i := n; i < f.Width; i++ {
			out[i] = f.Pad
		}
	}
	return out
}

// EncodeString is Encode for strings.
func (f FixedWidth) EncodeString(value string) []byte {
	return f.Encode([]byte(value))
}

// Decode returns the prefix of record before the first pad byte. If the
// first Width bytes contain no pad byte the whole record is the value.
// The result aliases record.
func (f FixedWidth) Decode(record []byte) []byte {
	if len(record) > f.Width {
		record = record[:f.Width]
	}
	if i := bytes.IndexByte(record, f.Pad); i >= 0 {
		return record[:i]
	}
	return record
}

// DecodeString is Decode returning a string copy.
func (f FixedWidth) DecodeString(record []byte) string {
	return string(f.Decode(record))
}
