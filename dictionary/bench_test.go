package dictionary

import (
	"fmt"
	"testing"

	"github.com/hupe1980/colseg/metadata"
)

func benchStrings(n int) []string {
	values := make([]string, n)
	for i := range values {
		values[i] = fmt.Sprintf("value-%08d", i)
	}
	return values
}

func BenchmarkStringDictionary_IndexOf(b *testing.B) {
	for _, n := range []int{1_000, 100_000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			values := benchStrings(n)
			width := StringWidth(values)
			codec := FixedWidth{Width: width}
			buf := newBuffer(EncodedSize(metadata.String, n, width))
			if _, err := WriteString(buf, values, codec); err != nil {
				b.Fatal(err)
			}
			d, err := NewStringDictionary(buf, n, codec, "")
			if err != nil {
				b.Fatal(err)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if d.IndexOf(values[i%n]) < 0 {
					b.Fatal("missing value")
				}
			}
		})
	}
}

func BenchmarkLongDictionary_Get(b *testing.B) {
	const n = 100_000
	values := make([]int64, n)
	for i := range values {
		values[i] = int64(i) * 3
	}
	buf := newBuffer(EncodedSize(metadata.Long, n, 0))
	if _, err := WriteLong(buf, values); err != nil {
		b.Fatal(err)
	}
	d, err := NewLongDictionary(buf, n, "")
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Value(i % n); err != nil {
			b.Fatal(err)
		}
	}
}
