package segment

import (
	"io"
	"os"
	"sync"

	"github.com/hupe1980/colseg/buffer"
)

// reader is a read session over an immutable snapshot of the index map.
type reader struct {
	dir  *LocalDirectory
	view *indexMap

	mu      sync.Mutex
	closed  bool
	buffers map[indexKey]*buffer.Buffer
	streams []io.Closer
}

var _ Reader = (*reader)(nil)

func newReader(d *LocalDirectory, view *indexMap) *reader {
	return &reader{dir: d, view: view, buffers: make(map[indexKey]*buffer.Buffer)}
}

func (r *reader) IndexFor(column string, typ ColumnIndexType) (*buffer.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrUseAfterClose
	}
	return r.committedIndex(indexKey{column: column, typ: typ})
}

// committedIndex must be called with r.mu held.
func (r *reader) committedIndex(k indexKey) (*buffer.Buffer, error) {
	if b, ok := r.buffers[k]; ok {
		return b, nil
	}
	e, ok := r.view.Entries[k]
	if !ok {
		return nil, &IndexError{Op: "get", Column: k.column, Type: k.typ, Err: ErrIndexNotFound}
	}
	b, err := r.dir.loadBuffer(r.dir.filePath(k.fileName()), e.Size)
	if err != nil {
		return nil, &IndexError{Op: "load", Column: k.column, Type: k.typ, Err: err}
	}
	r.buffers[k] = b
	return b, nil
}

func (r *reader) HasIndexFor(column string, typ ColumnIndexType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.view.Entries[indexKey{column: column, typ: typ}]
	return !r.closed && ok
}

func (r *reader) HasStarTree() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.view.StarTree != nil
}

func (r *reader) StarTreeFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.view.StarTree == nil {
		return ""
	}
	return r.dir.filePath(starTreeFile)
}

func (r *reader) StarTreeStream() (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrUseAfterClose
	}
	if r.view.StarTree == nil {
		return nil, ErrStarTreeNotFound
	}
	return r.openStream(r.dir.filePath(starTreeFile))
}

// openStream must be called with r.mu held.
func (r *reader) openStream(name string) (io.ReadCloser, error) {
	f, err := r.dir.opts.fsys.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	r.streams = append(r.streams, f)
	return f, nil
}

func (r *reader) Close() error {
	if !r.closeHandles() {
		return nil
	}
	r.dir.releaseReader()
	return nil
}

// closeHandles releases buffers and streams and marks the session closed.
// It reports false if the session was already closed.
func (r *reader) closeHandles() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.closed = true
	r.releaseLocked()
	return true
}

func (r *reader) releaseLocked() {
	for k, b := range r.buffers {
		_ = b.Close()
		delete(r.buffers, k)
	}
	for _, s := range r.streams {
		_ = s.Close()
	}
	r.streams = nil
}
