package segment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"

	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/internal/fs"
	"github.com/hupe1980/colseg/internal/hash"
	"github.com/hupe1980/colseg/internal/resource"
)

type starTreeChange uint8

const (
	starTreeKeep starTreeChange = iota
	starTreeReplace
	starTreeRemove
)

type stagedIndex struct {
	buf  *buffer.Buffer
	size int64
}

// writer stages changes on top of the committed snapshot it was opened with.
type writer struct {
	*reader

	staged      map[indexKey]*stagedIndex
	removed     map[indexKey]struct{}
	starTree    starTreeChange
	starTreeOut *stagedStream
	stagingDone bool
}

var _ Writer = (*writer)(nil)

func newWriter(d *LocalDirectory, view *indexMap) *writer {
	return &writer{
		reader:  newReader(d, view),
		staged:  make(map[indexKey]*stagedIndex),
		removed: make(map[indexKey]struct{}),
	}
}

func (w *writer) Directory() Directory { return w.dir }

func (w *writer) IsIndexRemovalSupported() bool { return w.dir.opts.removeSupported }

func (w *writer) IndexFor(column string, typ ColumnIndexType) (*buffer.Buffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrUseAfterClose
	}
	k := indexKey{column: column, typ: typ}
	if s, ok := w.staged[k]; ok {
		return s.buf, nil
	}
	if _, ok := w.removed[k]; ok {
		return nil, &IndexError{Op: "get", Column: column, Type: typ, Err: ErrIndexNotFound}
	}
	return w.committedIndex(k)
}

func (w *writer) HasIndexFor(column string, typ ColumnIndexType) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	k := indexKey{column: column, typ: typ}
	if _, ok := w.staged[k]; ok {
		return true
	}
	if _, ok := w.removed[k]; ok {
		return false
	}
	_, ok := w.view.Entries[k]
	return ok
}

func (w *writer) NewIndexFor(column string, typ ColumnIndexType, sizeBytes int64) (*buffer.Buffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrUseAfterClose
	}
	k := indexKey{column: column, typ: typ}
	switch {
	case !validColumn(column):
		return nil, &IndexError{Op: "create", Column: column, Type: typ, Err: ErrInvalidColumn}
	case !typ.Valid():
		return nil, &IndexError{Op: "create", Column: column, Type: typ, Err: ErrInvalidIndexType}
	case sizeBytes <= 0 || sizeBytes > math.MaxInt:
		return nil, &IndexError{Op: "create", Column: column, Type: typ, Err: ErrInvalidSize}
	}
	if err := w.ensureStaging(); err != nil {
		return nil, &IndexError{Op: "create", Column: column, Type: typ, Err: err}
	}

	w.discardStaged(k)
	b, err := w.dir.allocBuffer(w.dir.stagingPath(k.fileName()), sizeBytes)
	if err != nil {
		return nil, &IndexError{Op: "create", Column: column, Type: typ, Err: err}
	}
	w.staged[k] = &stagedIndex{buf: b, size: sizeBytes}
	delete(w.removed, k)

	w.dir.opts.logger.Debug("staged index",
		slog.String("column", column),
		slog.String("type", typ.String()),
		slog.Int64("size", sizeBytes))
	return b, nil
}

func (w *writer) RemoveIndex(column string, typ ColumnIndexType) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrUseAfterClose
	}
	if !w.dir.opts.removeSupported {
		return &IndexError{Op: "remove", Column: column, Type: typ, Err: ErrUnsupportedOperation}
	}
	k := indexKey{column: column, typ: typ}
	found := w.discardStaged(k)
	if _, ok := w.view.Entries[k]; ok {
		if _, gone := w.removed[k]; !gone {
			w.removed[k] = struct{}{}
			found = true
		}
	}
	if !found {
		return &IndexError{Op: "remove", Column: column, Type: typ, Err: ErrIndexNotFound}
	}
	return nil
}

func (w *writer) HasStarTree() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	switch w.starTree {
	case starTreeReplace:
		return true
	case starTreeRemove:
		return false
	}
	return w.view.StarTree != nil
}

func (w *writer) StarTreeFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ""
	}
	switch w.starTree {
	case starTreeReplace:
		return w.dir.stagingPath(starTreeFile)
	case starTreeRemove:
		return ""
	}
	if w.view.StarTree == nil {
		return ""
	}
	return w.dir.filePath(starTreeFile)
}

func (w *writer) StarTreeStream() (io.ReadCloser, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrUseAfterClose
	}
	switch w.starTree {
	case starTreeReplace:
		return w.openStream(w.dir.stagingPath(starTreeFile))
	case starTreeRemove:
		return nil, ErrStarTreeNotFound
	}
	if w.view.StarTree == nil {
		return nil, ErrStarTreeNotFound
	}
	return w.openStream(w.dir.filePath(starTreeFile))
}

func (w *writer) StarTreeOutputStream() (io.WriteCloser, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrUseAfterClose
	}
	if err := w.ensureStaging(); err != nil {
		return nil, err
	}
	if w.starTreeOut != nil {
		_ = w.starTreeOut.Close()
	}
	f, err := w.dir.opts.fsys.OpenFile(w.dir.stagingPath(starTreeFile), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	w.starTreeOut = &stagedStream{f: f}
	w.starTree = starTreeReplace
	return w.starTreeOut, nil
}

func (w *writer) RemoveStarTree() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrUseAfterClose
	}
	switch w.starTree {
	case starTreeRemove:
		return ErrStarTreeNotFound
	case starTreeReplace:
		w.discardStarTree()
		if w.view.StarTree != nil {
			w.starTree = starTreeRemove
		}
		return nil
	}
	if w.view.StarTree == nil {
		return ErrStarTreeNotFound
	}
	w.starTree = starTreeRemove
	return nil
}

// SaveAndClose commits in this order: staged buffers (sorted by column and
// type), removals, the star tree, then the index map. The first failing step
// stops the commit; files written before it stay in place.
func (w *writer) SaveAndClose() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrUseAfterClose
	}
	w.closed = true

	start := time.Now()
	n := len(w.staged)
	published, err := w.commitLocked()
	w.discardAllLocked()
	w.releaseLocked()
	w.mu.Unlock()

	w.dir.releaseWriter(published)

	d := time.Since(start)
	logger := w.dir.opts.logger
	if err != nil {
		logger.Debug("commit failed", slog.Duration("duration", d), slog.Any("error", err))
	} else {
		logger.Debug("committed segment",
			slog.Duration("duration", d),
			slog.Int("staged", n),
			slog.Int("indexes", len(published.Entries)),
			slog.Bool("star_tree", published.StarTree != nil))
	}
	if hook := w.dir.opts.hooks.OnCommit; hook != nil {
		hook(d, n, err)
	}
	return err
}

func (w *writer) AbortAndClose() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrUseAfterClose
	}
	w.abortLocked()
	return nil
}

// Close aborts a writer that was neither saved nor aborted.
func (w *writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.abortLocked()
	return nil
}

// abortLocked is entered with w.mu held and releases it.
func (w *writer) abortLocked() {
	w.closed = true
	staged := len(w.staged)
	w.discardAllLocked()
	w.releaseLocked()
	w.mu.Unlock()

	w.dir.releaseWriter(nil)
	w.dir.opts.logger.Debug("aborted segment changes", slog.Int("staged", staged))
	if hook := w.dir.opts.hooks.OnAbort; hook != nil {
		hook()
	}
}

func (w *writer) ensureStaging() error {
	if w.stagingDone {
		return nil
	}
	if err := w.dir.opts.fsys.MkdirAll(w.dir.stagingPath(""), 0o755); err != nil {
		return err
	}
	w.stagingDone = true
	return nil
}

// discardStaged drops a staged buffer and reports whether one existed.
func (w *writer) discardStaged(k indexKey) bool {
	s, ok := w.staged[k]
	if !ok {
		return false
	}
	_ = s.buf.Close()
	if s.buf.Mode() == buffer.ReadModeMmap {
		_ = w.dir.opts.fsys.Remove(w.dir.stagingPath(k.fileName()))
	}
	delete(w.staged, k)
	return true
}

func (w *writer) discardStarTree() {
	if w.starTreeOut != nil {
		_ = w.starTreeOut.Close()
		w.starTreeOut = nil
	}
	_ = w.dir.opts.fsys.Remove(w.dir.stagingPath(starTreeFile))
	w.starTree = starTreeKeep
}

func (w *writer) discardAllLocked() {
	for k := range w.staged {
		w.discardStaged(k)
	}
	if w.starTreeOut != nil {
		_ = w.starTreeOut.Close()
		w.starTreeOut = nil
	}
	if w.stagingDone {
		if err := w.dir.opts.fsys.RemoveAll(w.dir.stagingPath("")); err != nil {
			w.dir.opts.logger.Warn("failed to remove staging directory", slog.Any("error", err))
		}
		w.stagingDone = false
	}
}

func (w *writer) commitLocked() (*indexMap, error) {
	d := w.dir
	fsys := d.opts.fsys

	// Handles on committed files must not outlive the files they map.
	w.releaseLocked()

	next := w.view.clone()

	keys := make([]indexKey, 0, len(w.staged))
	for k := range w.staged {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	for _, k := range keys {
		s := w.staged[k]
		e, err := w.persist(k, s)
		if err != nil {
			return nil, &CommitError{Op: "write", Column: k.column, Type: k.typ, Err: err}
		}
		if err := fsys.Rename(d.stagingPath(k.fileName()), d.filePath(k.fileName())); err != nil {
			return nil, &CommitError{Op: "rename", Column: k.column, Type: k.typ, Err: err}
		}
		delete(w.staged, k)
		next.Entries[k] = e
	}

	removed := make([]indexKey, 0, len(w.removed))
	for k := range w.removed {
		removed = append(removed, k)
	}
	slices.SortFunc(removed, compareKeys)
	for _, k := range removed {
		if err := fsys.Remove(d.filePath(k.fileName())); err != nil && !os.IsNotExist(err) {
			return nil, &CommitError{Op: "remove", Column: k.column, Type: k.typ, Err: err}
		}
		delete(next.Entries, k)
	}

	switch w.starTree {
	case starTreeReplace:
		if w.starTreeOut != nil {
			err := w.starTreeOut.Close()
			w.starTreeOut = nil
			if err != nil {
				return nil, &CommitError{Op: "star-tree", Err: err}
			}
		}
		e, err := checksumFile(fsys, d.stagingPath(starTreeFile))
		if err != nil {
			return nil, &CommitError{Op: "star-tree", Err: err}
		}
		if err := fsys.Rename(d.stagingPath(starTreeFile), d.filePath(starTreeFile)); err != nil {
			return nil, &CommitError{Op: "star-tree", Err: err}
		}
		next.StarTree = &e
	case starTreeRemove:
		if err := fsys.Remove(d.filePath(starTreeFile)); err != nil && !os.IsNotExist(err) {
			return nil, &CommitError{Op: "star-tree", Err: err}
		}
		next.StarTree = nil
	}

	if err := writeIndexMap(fsys, d.path, next); err != nil {
		return nil, &CommitError{Op: "index-map", Err: err}
	}
	return next, nil
}

// persist makes a staged buffer durable in its staging file and closes it.
func (w *writer) persist(k indexKey, s *stagedIndex) (indexEntry, error) {
	d := w.dir
	data := s.buf.Bytes()
	if data == nil {
		return indexEntry{}, buffer.ErrClosed
	}
	e := indexEntry{Size: s.size, Checksum: hash.Checksum64(data)}

	ctx := context.Background()
	if s.buf.Mode() == buffer.ReadModeMmap {
		if err := d.opts.rc.AcquireIO(ctx, int(s.size)); err != nil {
			return indexEntry{}, err
		}
		if err := s.buf.Flush(); err != nil {
			return indexEntry{}, err
		}
		return e, s.buf.Close()
	}

	err := writeStagedFile(ctx, d.opts.fsys, d.opts.rc, d.stagingPath(k.fileName()), data)
	return e, errors.Join(err, s.buf.Close())
}

func writeStagedFile(ctx context.Context, fsys fs.FileSystem, rc *resource.Controller, name string, data []byte) error {
	f, err := fsys.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := resource.NewRateLimitedWriter(ctx, f, rc).Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// stagedStream is the star-tree output stream. Close is idempotent.
type stagedStream struct {
	f      fs.File
	closed bool
}

func (s *stagedStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.f.Write(p)
}

func (s *stagedStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.f.Sync(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}
