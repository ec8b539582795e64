package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedWidth(t *testing.T) {
	tests := []struct {
		name    string
		codec   FixedWidth
		value   string
		encoded string
	}{
		{"padded", FixedWidth{Width: 5}, "kiwi", "kiwi\x00"},
		{"exact width", FixedWidth{Width: 5}, "apple", "apple"},
		{"empty", FixedWidth{Width: 3, Pad: '%'}, "", "%%%"},
		{"custom pad", FixedWidth{Width: 6, Pad: '%'}, "pear", "pear%%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := tt.codec.EncodeString(tt.value)
			assert.Equal(t, tt.encoded, string(enc))
			assert.Len(t, enc, tt.codec.Width)
			assert.Equal(t, tt.value, tt.codec.DecodeString(enc))
		})
	}
}

func TestFixedWidth_Truncate(t *testing.T) {
	c := FixedWidth{Width: 3}
	assert.Equal(t, "ban", string(c.EncodeString("banana")))
}

func TestFixedWidth_DecodeIgnoresBytesPastWidth(t *testing.T) {
	c := FixedWidth{Width: 4}
	assert.Equal(t, "abcd", c.DecodeString([]byte("abcdef")))
	assert.Equal(t, "ab", c.DecodeString([]byte("ab\x00d\x00")))
}
