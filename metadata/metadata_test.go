package metadata

import (
	"bytes"
	"testing"

	"github.com/hupe1980/colseg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSegment() *Segment {
	s := &Segment{Name: "fruits_0", TotalDocs: 6}
	s.SetColumn(Column{Name: "price", DataType: Double, Cardinality: 4, TotalDocs: 6, HasDictionary: true})
	s.SetColumn(Column{Name: "name", DataType: String, Cardinality: 3, TotalDocs: 6, MaxEntryWidth: 5, BitsPerElement: 2, HasDictionary: true, HasInvertedIndex: true})
	return s
}

func TestSegment_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	s := testSegment()
	require.NoError(t, s.Save(dir))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	// columns are kept in name order
	assert.Equal(t, "name", got.Columns[0].Name)

	col, ok := got.Column("name")
	require.True(t, ok)
	assert.Equal(t, 5, col.EntryWidth())

	col, ok = got.Column("price")
	require.True(t, ok)
	assert.Equal(t, 8, col.EntryWidth())

	_, ok = got.Column("missing")
	assert.False(t, ok)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSegment_ReadWriteWithStdlibCodec(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testSegment().Write(&buf, codec.JSON{}))

	got, err := Read(&buf, codec.GoJSON{})
	require.NoError(t, err)
	assert.Len(t, got.Columns, 2)
}

func TestSegment_Validate(t *testing.T) {
	tests := []struct {
		name string
		col  Column
	}{
		{"empty name", Column{DataType: Int}},
		{"bad type", Column{Name: "a", DataType: "BLOB"}},
		{"negative cardinality", Column{Name: "a", DataType: Int, Cardinality: -1}},
		{"string without width", Column{Name: "a", DataType: String, Cardinality: 2, HasDictionary: true}},
		{"bits too wide", Column{Name: "a", DataType: Int, BitsPerElement: 33}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.col.Validate())
		})
	}

	dup := &Segment{Columns: []Column{{Name: "a", DataType: Int}, {Name: "a", DataType: Long}}}
	assert.Error(t, dup.Validate())
}

func TestParseDataType(t *testing.T) {
	dt, err := ParseDataType("string")
	require.NoError(t, err)
	assert.Equal(t, String, dt)
	assert.False(t, dt.Numeric())
	assert.True(t, Long.Numeric())
	assert.Equal(t, 4, Float.Size())

	_, err = ParseDataType("blob")
	assert.Error(t, err)
}
