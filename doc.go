// Package colseg provides columnar segment storage for analytical data.
//
// A segment is a directory holding, per column, a sorted fixed-width
// dictionary and optional forward and inverted indexes, plus an optional
// aggregation tree ("star tree") stream. Access goes through sessions: any
// number of concurrent readers, or a single writer whose staged changes are
// committed or discarded as a whole.
//
// # Quick Start
//
//	seg, _ := colseg.Open("./data/fruits")
//	defer seg.Close()
//
//	_ = seg.Update(func(w segment.Writer) error {
//	    buf, err := w.NewIndexFor("fruit", segment.Dictionary, 15)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = dictionary.WriteString(buf, []string{"pear", "apple", "kiwi"}, dictionary.FixedWidth{Width: 5})
//	    return err
//	})
//
//	_ = seg.View(func(v *colseg.View) error {
//	    dict, err := v.Dictionary("fruit")
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(dict.IndexOf("kiwi")) // 1
//	    return nil
//	})
//
// # Sessions
//
// View and Update never block. A View requested while an Update runs, or an
// Update requested while any View is open, fails with ErrBusy. Buffers handed
// out inside a session are invalid once the callback returns.
//
// # Deep Store
//
// Segment.Push copies the committed files to a blobstore.BlobStore (local
// disk, S3, MinIO) as a new compressed version; Fetch restores the current
// version into a local directory and opens it.
//
// # Layout
//
//   - buffer: fixed-size byte regions (mmap or heap) with big-endian accessors
//   - dictionary: fixed-width codec, sorted buffer and typed dictionary readers
//   - fwdindex, invindex: bit-packed forward and roaring inverted indexes
//   - metadata: the per-segment column description
//   - segment: the local directory and its reader and writer sessions
//   - blobstore, deepstore: remote copies of committed segments
package colseg
