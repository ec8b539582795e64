package colseg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/colseg/blobstore"
	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/deepstore"
	"github.com/hupe1980/colseg/dictionary"
	"github.com/hupe1980/colseg/fwdindex"
	"github.com/hupe1980/colseg/invindex"
	"github.com/hupe1980/colseg/metadata"
	"github.com/hupe1980/colseg/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeColumn commits dictionary, forward and inverted index for docs and
// records the column in the metadata.
func writeColumn(t *testing.T, seg *Segment, column string, docs []string, pad byte) {
	t.Helper()

	var dict []string
	width := dictionary.StringWidth(docs)
	err := seg.Update(func(w segment.Writer) error {
		unique := dictionary.SortedUnique(docs)
		buf, err := w.NewIndexFor(column, segment.Dictionary, int64(len(unique)*width))
		if err != nil {
			return err
		}
		dict, err = dictionary.WriteString(buf, docs, dictionary.FixedWidth{Width: width, Pad: pad})
		if err != nil {
			return err
		}

		ids := make([]int, len(docs))
		for i, doc := range docs {
			for id, v := range dict {
				if v == doc {
					ids[i] = id
				}
			}
		}

		bits := fwdindex.BitsFor(len(dict))
		fwd, err := w.NewIndexFor(column, segment.ForwardIndex, int64(fwdindex.EncodedSize(len(docs), bits)))
		if err != nil {
			return err
		}
		if err := fwdindex.Write(fwd, ids, bits); err != nil {
			return err
		}

		postings, err := invindex.Postings(ids, len(dict))
		if err != nil {
			return err
		}
		inv, err := w.NewIndexFor(column, segment.InvertedIndex, int64(invindex.EncodedSize(postings)))
		if err != nil {
			return err
		}
		return invindex.Write(inv, postings)
	})
	require.NoError(t, err)

	md := seg.Metadata()
	md.TotalDocs = len(docs)
	md.SetColumn(metadata.Column{
		Name:             column,
		DataType:         metadata.String,
		Cardinality:      len(dict),
		TotalDocs:        len(docs),
		MaxEntryWidth:    width,
		BitsPerElement:   fwdindex.BitsFor(len(dict)),
		HasDictionary:    true,
		HasInvertedIndex: true,
	})
	require.NoError(t, seg.SetMetadata(md))
}

func openSegment(t *testing.T, opts ...Option) *Segment {
	t.Helper()
	seg, err := Open(filepath.Join(t.TempDir(), "fruits"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = seg.Close() })
	return seg
}

func TestSegment_Dictionary(t *testing.T) {
	for _, mode := range []buffer.ReadMode{buffer.ReadModeMmap, buffer.ReadModeHeap} {
		t.Run(mode.String(), func(t *testing.T) {
			seg := openSegment(t, WithReadMode(mode))
			writeColumn(t, seg, "fruit", []string{"pear", "apple", "kiwi"}, 0)

			err := seg.View(func(v *View) error {
				dict, err := v.Dictionary("fruit")
				require.NoError(t, err)

				assert.Equal(t, 3, dict.Length())
				assert.Equal(t, 1, dict.IndexOf("kiwi"))
				assert.Equal(t, "kiwi", dict.Get(1))
				assert.Equal(t, "apple", dict.Get(0))
				assert.Equal(t, "null", dict.Get(5))
				assert.Equal(t, dictionary.NotFound, dict.IndexOf("mango"))

				_, err = dict.StringValue(5)
				assert.ErrorIs(t, err, dictionary.ErrOutOfRange)
				_, err = dict.LongValue(1)
				assert.ErrorIs(t, err, dictionary.ErrUnsupportedConversion)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestSegment_PadAndNullToken(t *testing.T) {
	seg := openSegment(t, WithPadByte('%'), WithNullToken("<none>"))
	writeColumn(t, seg, "fruit", []string{"fig", "banana"}, '%')

	err := seg.View(func(v *View) error {
		dict, err := v.Dictionary("fruit")
		require.NoError(t, err)
		assert.Equal(t, "fig", dict.Get(1))
		assert.Equal(t, 1, dict.IndexOf("fig"))
		assert.Equal(t, "<none>", dict.Get(-1))
		return nil
	})
	require.NoError(t, err)
}

func TestSegment_ForwardAndInvertedIndex(t *testing.T) {
	seg := openSegment(t)
	docs := []string{"pear", "apple", "pear", "kiwi", "apple"}
	writeColumn(t, seg, "fruit", docs, 0)

	err := seg.View(func(v *View) error {
		dict, err := v.Dictionary("fruit")
		require.NoError(t, err)
		fwd, err := v.ForwardIndex("fruit")
		require.NoError(t, err)
		inv, err := v.InvertedIndex("fruit")
		require.NoError(t, err)

		require.Equal(t, len(docs), fwd.Len())
		for doc, want := range docs {
			id, err := fwd.Get(doc)
			require.NoError(t, err)
			assert.Equal(t, want, dict.Get(id))
		}

		pears, err := inv.DocIDs(dict.IndexOf("pear"))
		require.NoError(t, err)
		assert.Equal(t, []uint32{0, 2}, pears.ToArray())
		return nil
	})
	require.NoError(t, err)
}

func TestSegment_PadAboveValueBytes(t *testing.T) {
	seg := openSegment(t, WithPadByte('%'))
	writeColumn(t, seg, "dish", []string{"b", "a c", "a", "a b"}, '%')

	err := seg.View(func(v *View) error {
		dict, err := v.Dictionary("dish")
		require.NoError(t, err)
		for id, want := range []string{"a", "a b", "a c", "b"} {
			assert.Equal(t, id, dict.IndexOf(want), want)
			assert.Equal(t, want, dict.Get(id))
		}
		return nil
	})
	require.NoError(t, err)
}

func TestSegment_ColumnNotFound(t *testing.T) {
	seg := openSegment(t)

	err := seg.View(func(v *View) error {
		_, err := v.Dictionary("missing")
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
	var cnf *ErrColumnNotFound
	require.ErrorAs(t, err, &cnf)
	assert.Equal(t, "missing", cnf.Column)
}

func TestSegment_IndexNotFound(t *testing.T) {
	seg := openSegment(t)
	md := seg.Metadata()
	md.SetColumn(metadata.Column{Name: "qty", DataType: metadata.Int, HasDictionary: true})
	require.NoError(t, seg.SetMetadata(md))

	err := seg.View(func(v *View) error {
		_, err := v.Dictionary("qty")
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, segment.ErrIndexNotFound)

	err = seg.View(func(v *View) error {
		_, err := v.StarTree()
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSegment_UpdateAbortsOnError(t *testing.T) {
	mc := &BasicMetricsCollector{}
	seg := openSegment(t, WithMetricsCollector(mc))
	boom := errors.New("boom")

	err := seg.Update(func(w segment.Writer) error {
		_, err := w.NewIndexFor("fruit", segment.Dictionary, 8)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = seg.View(func(v *View) error {
		assert.False(t, v.Reader().HasIndexFor("fruit", segment.Dictionary))
		return nil
	})
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.AbortCount)
	assert.Equal(t, int64(0), stats.CommitCount)
}

func TestSegment_UpdatePanicReleasesWriter(t *testing.T) {
	seg := openSegment(t)

	require.Panics(t, func() {
		_ = seg.Update(func(w segment.Writer) error {
			panic("boom")
		})
	})

	require.NoError(t, seg.Update(func(w segment.Writer) error {
		out, err := w.StarTreeOutputStream()
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, "tree")
		return err
	}))
}

func TestSegment_SessionConflict(t *testing.T) {
	mc := &BasicMetricsCollector{}
	seg := openSegment(t, WithMetricsCollector(mc))

	err := seg.View(func(v *View) error {
		err := seg.Update(func(segment.Writer) error { return nil })
		assert.ErrorIs(t, err, ErrBusy)
		assert.ErrorIs(t, err, segment.ErrSessionConflict)

		// Concurrent readers are fine.
		return seg.View(func(*View) error { return nil })
	})
	require.NoError(t, err)

	err = seg.Update(func(segment.Writer) error {
		return seg.View(func(*View) error { return nil })
	})
	require.ErrorIs(t, err, ErrBusy)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.WriterConflicts)
	assert.Equal(t, int64(1), stats.ReaderConflicts)
	assert.Equal(t, int64(1), stats.AbortCount)
}

func TestSegment_Metrics(t *testing.T) {
	mc := &BasicMetricsCollector{}
	seg := openSegment(t, WithMetricsCollector(mc))
	writeColumn(t, seg, "fruit", []string{"apple", "kiwi"}, 0)

	err := seg.View(func(v *View) error {
		_, err := v.Dictionary("fruit")
		require.NoError(t, err)
		_, err = v.ForwardIndex("missing")
		require.Error(t, err)
		return nil
	})
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.CommitCount)
	assert.Equal(t, int64(3), stats.CommitBuffers)
	assert.Equal(t, int64(2), stats.LookupCount)
	assert.Equal(t, int64(1), stats.LookupErrors)
}

func TestSegment_ReopenLoadsMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fruits")
	seg, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "fruits", seg.Metadata().Name)
	writeColumn(t, seg, "fruit", []string{"pear", "apple", "kiwi"}, 0)
	require.NoError(t, seg.Verify())
	require.NoError(t, seg.Close())

	seg, err = Open(path, WithReadMode(buffer.ReadModeHeap))
	require.NoError(t, err)
	defer seg.Close()

	col, ok := seg.Metadata().Column("fruit")
	require.True(t, ok)
	assert.Equal(t, 3, col.Cardinality)
	assert.Equal(t, 5, col.MaxEntryWidth)

	size, err := seg.DiskSizeBytes()
	require.NoError(t, err)
	assert.Positive(t, size)
}

func TestSegment_MetadataIsCopied(t *testing.T) {
	seg := openSegment(t)
	md := seg.Metadata()
	md.SetColumn(metadata.Column{Name: "fruit", DataType: metadata.String})
	_, ok := seg.Metadata().Column("fruit")
	assert.False(t, ok)

	require.Error(t, seg.SetMetadata(nil))
	bad := &metadata.Segment{Columns: []metadata.Column{{Name: "x", DataType: "blob"}}}
	require.Error(t, seg.SetMetadata(bad))
}

func TestSegment_Closed(t *testing.T) {
	seg, err := Open(filepath.Join(t.TempDir(), "fruits"))
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	err = seg.View(func(*View) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	err = seg.Update(func(segment.Writer) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSegment_PushFetch(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	seg := openSegment(t, WithDeepStoreOptions(deepstore.WithCompression(deepstore.CompressionLZ4)))
	writeColumn(t, seg, "fruit", []string{"pear", "apple", "kiwi"}, 0)

	desc, err := seg.Push(ctx, store, "tables/fruits")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), desc.Version)
	assert.Equal(t, deepstore.CompressionLZ4, desc.Compression)

	dst := filepath.Join(t.TempDir(), "copy")
	fetched, err := Fetch(ctx, store, "tables/fruits", dst, WithIOLimit(1<<30), WithMaxConcurrentTransfers(2))
	require.NoError(t, err)
	defer fetched.Close()

	err = fetched.View(func(v *View) error {
		dict, err := v.Dictionary("fruit")
		require.NoError(t, err)
		assert.Equal(t, "kiwi", dict.Get(1))
		return nil
	})
	require.NoError(t, err)

	_, err = Fetch(ctx, store, "tables/missing", filepath.Join(t.TempDir(), "none"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSegment_Logging(t *testing.T) {
	ctx := context.Background()

	t.Run("OneInfoLinePerCommit", func(t *testing.T) {
		l, buf := newBufferLogger(slog.LevelInfo)
		seg := openSegment(t, WithLogger(l))
		writeColumn(t, seg, "fruit", []string{"pear", "apple", "kiwi"}, 0)

		assert.Equal(t, 1, strings.Count(buf.String(), "committed"))
		assert.Contains(t, buf.String(), "update committed")
	})

	t.Run("PushCarriesStoreName", func(t *testing.T) {
		l, buf := newBufferLogger(slog.LevelInfo)
		seg := openSegment(t, WithLogger(l))
		writeColumn(t, seg, "fruit", []string{"pear", "apple", "kiwi"}, 0)
		buf.Reset()

		_, err := seg.Push(ctx, blobstore.NewMemoryStore(), "tables/fruits")
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "push completed")
		assert.Contains(t, buf.String(), "store_name=tables/fruits")
		assert.Equal(t, 1, strings.Count(buf.String(), "level=INFO"))
	})

	t.Run("LookupFailureCarriesColumn", func(t *testing.T) {
		l, buf := newBufferLogger(slog.LevelDebug)
		seg := openSegment(t, WithLogger(l))
		buf.Reset()

		err := seg.View(func(v *View) error {
			_, err := v.ForwardIndex("qty")
			return err
		})
		require.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, buf.String(), "index lookup failed")
		assert.Contains(t, buf.String(), "column=qty")
	})
}
