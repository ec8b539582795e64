package colseg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/colseg/blobstore"
	"github.com/hupe1980/colseg/deepstore"
	"github.com/hupe1980/colseg/dictionary"
	"github.com/hupe1980/colseg/fwdindex"
	"github.com/hupe1980/colseg/internal/resource"
	"github.com/hupe1980/colseg/invindex"
	"github.com/hupe1980/colseg/metadata"
	"github.com/hupe1980/colseg/segment"
)

// Segment is a local segment directory together with its metadata.
//
// A Segment is safe for concurrent use. Any number of View calls may run at
// once; Update is exclusive and fails with ErrBusy while views are open.
type Segment struct {
	opts   options
	rc     *resource.Controller
	dir    *segment.LocalDirectory
	logger *Logger

	mu   sync.RWMutex
	meta *metadata.Segment
}

// Open opens or creates the segment at path. A directory without
// metadata.json starts with empty metadata.
func Open(path string, optFns ...Option) (*Segment, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return open(path, opts, opts.resourceController())
}

func open(path string, opts options, rc *resource.Controller) (*Segment, error) {
	s := &Segment{opts: opts, rc: rc}

	dir, err := segment.OpenLocal(path, opts.segmentOptions(rc, s.hooks())...)
	if err != nil {
		return nil, translateError(err)
	}
	s.dir = dir
	s.logger = opts.logger.WithSegment(dir.Path())

	meta, err := metadata.LoadFS(opts.fsys, dir.Path())
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		meta = &metadata.Segment{Name: filepath.Base(dir.Path())}
	case err != nil:
		_ = dir.Close()
		return nil, translateError(err)
	}
	s.meta = meta
	return s, nil
}

func (s *Segment) hooks() segment.Hooks {
	mc := s.opts.metricsCollector
	return segment.Hooks{
		OnCommit:          mc.RecordCommit,
		OnAbort:           mc.RecordAbort,
		OnSessionConflict: mc.RecordSessionConflict,
	}
}

// Path returns the absolute segment directory.
func (s *Segment) Path() string { return s.dir.Path() }

// Directory exposes the underlying segment directory.
func (s *Segment) Directory() *segment.LocalDirectory { return s.dir }

// DiskSizeBytes returns the bytes used by the committed segment.
func (s *Segment) DiskSizeBytes() (int64, error) {
	n, err := s.dir.DiskSizeBytes()
	return n, translateError(err)
}

// Metadata returns a copy of the segment metadata.
func (s *Segment) Metadata() *metadata.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMetadata(s.meta)
}

// SetMetadata validates md and atomically replaces metadata.json.
func (s *Segment) SetMetadata(md *metadata.Segment) error {
	if md == nil {
		return errors.New("colseg: nil metadata")
	}
	if err := md.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := md.SaveFS(s.opts.fsys, s.dir.Path()); err != nil {
		return translateError(err)
	}
	s.meta = cloneMetadata(md)
	return nil
}

func cloneMetadata(md *metadata.Segment) *metadata.Segment {
	cp := *md
	cp.Columns = slices.Clone(md.Columns)
	return &cp
}

// View runs fn inside a read session. Buffers obtained through the View
// must not be used after fn returns.
func (s *Segment) View(fn func(*View) error) error {
	r, err := s.dir.CreateReader()
	if err != nil {
		s.refused("reader", err)
		return translateError(err)
	}
	defer r.Close()

	v := &View{
		r:      r,
		meta:   s.Metadata(),
		opts:   &s.opts,
		logger: s.logger,
	}
	return fn(v)
}

// Update runs fn inside the write session. Staged changes are committed
// when fn returns nil and discarded otherwise, including when fn panics.
// The commit is not atomic; see segment.Writer.SaveAndClose.
func (s *Segment) Update(fn func(segment.Writer) error) error {
	ctx := context.Background()
	start := time.Now()

	w, err := s.dir.CreateWriter()
	if err != nil {
		s.refused("writer", err)
		return translateError(err)
	}

	done := false
	defer func() {
		if !done {
			_ = w.AbortAndClose()
		}
	}()

	if err := fn(w); err != nil {
		done = true
		abortErr := w.AbortAndClose()
		s.logger.LogAbort(ctx, err, abortErr)
		if abortErr != nil {
			return errors.Join(err, translateError(abortErr))
		}
		return err
	}

	done = true
	err = w.SaveAndClose()
	s.logger.LogCommit(ctx, time.Since(start), err)
	return translateError(err)
}

func (s *Segment) refused(requested string, err error) {
	if errors.Is(err, segment.ErrSessionConflict) {
		s.logger.LogSessionConflict(context.Background(), requested)
	}
}

// Verify recomputes the checksums of all committed files.
func (s *Segment) Verify() error {
	return translateError(s.dir.Verify())
}

// Push uploads the committed segment to store as a new version of name.
func (s *Segment) Push(ctx context.Context, store blobstore.BlobStore, name string) (*deepstore.Descriptor, error) {
	logger := s.logger.WithStore(name)
	desc, err := deepstore.Push(ctx, s.dir, store, name, s.opts.deepStoreOptions(s.rc, logger)...)
	if err != nil {
		logger.LogPush(ctx, name, 0, 0, err)
		return nil, translateError(err)
	}
	logger.LogPush(ctx, name, desc.Version, desc.StoredSize(), nil)
	return desc, nil
}

// Fetch downloads the current version of name into localPath, replacing
// any existing directory there, and opens it.
func Fetch(ctx context.Context, store blobstore.BlobStore, name, localPath string, optFns ...Option) (*Segment, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	rc := opts.resourceController()

	logger := opts.logger.WithStore(name)
	desc, err := deepstore.Fetch(ctx, store, name, localPath, opts.deepStoreOptions(rc, logger)...)
	if err != nil {
		logger.LogFetch(ctx, name, localPath, 0, err)
		return nil, translateError(err)
	}
	logger.LogFetch(ctx, name, localPath, desc.Version, nil)
	return open(localPath, opts, rc)
}

// Close releases the directory. Open views and updates must have returned.
func (s *Segment) Close() error {
	return translateError(s.dir.Close())
}

// View is the read-only handle passed to Segment.View.
type View struct {
	r      segment.Reader
	meta   *metadata.Segment
	opts   *options
	logger *Logger
}

// Reader returns the underlying read session.
func (v *View) Reader() segment.Reader { return v.r }

// Metadata returns the metadata snapshot taken when the view opened.
func (v *View) Metadata() *metadata.Segment { return v.meta }

func (v *View) column(name string) (metadata.Column, error) {
	col, ok := v.meta.Column(name)
	if !ok {
		return metadata.Column{}, &ErrColumnNotFound{Column: name}
	}
	return col, nil
}

func (v *View) record(column string, typ segment.ColumnIndexType, start time.Time, err error) {
	v.opts.metricsCollector.RecordLookup(typ, time.Since(start), err)
	if err != nil {
		v.logger.WithColumn(column).Debug("index lookup failed",
			"index", typ.String(),
			"error", err,
		)
	}
}

// Dictionary opens the dictionary of column.
func (v *View) Dictionary(column string) (_ dictionary.Reader, err error) {
	start := time.Now()
	defer func() { v.record(column, segment.Dictionary, start, err) }()

	col, err := v.column(column)
	if err != nil {
		return nil, err
	}
	if !col.HasDictionary {
		return nil, fmt.Errorf("%w: column %q has no dictionary", ErrNotFound, column)
	}
	buf, err := v.r.IndexFor(column, segment.Dictionary)
	if err != nil {
		return nil, translateError(err)
	}
	return dictionary.Open(buf, dictionary.ConfigFor(col, v.opts.padByte, v.opts.nullToken))
}

// InvertedIndex opens the inverted index of column.
func (v *View) InvertedIndex(column string) (_ *invindex.Reader, err error) {
	start := time.Now()
	defer func() { v.record(column, segment.InvertedIndex, start, err) }()

	col, err := v.column(column)
	if err != nil {
		return nil, err
	}
	buf, err := v.r.IndexFor(column, segment.InvertedIndex)
	if err != nil {
		return nil, translateError(err)
	}
	return invindex.Open(buf, col.Cardinality)
}

// ForwardIndex opens the forward index of column. A zero BitsPerElement
// in the metadata is derived from the cardinality.
func (v *View) ForwardIndex(column string) (_ *fwdindex.Reader, err error) {
	start := time.Now()
	defer func() { v.record(column, segment.ForwardIndex, start, err) }()

	col, err := v.column(column)
	if err != nil {
		return nil, err
	}
	width := col.BitsPerElement
	if width == 0 {
		width = fwdindex.BitsFor(col.Cardinality)
	}
	buf, err := v.r.IndexFor(column, segment.ForwardIndex)
	if err != nil {
		return nil, translateError(err)
	}
	return fwdindex.Open(buf, col.TotalDocs, width)
}

// StarTree opens the star-tree stream.
func (v *View) StarTree() (io.ReadCloser, error) {
	rc, err := v.r.StarTreeStream()
	return rc, translateError(err)
}
