package segment

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/internal/mem"
	"github.com/hupe1980/colseg/internal/mmap"
)

// Directory owns the storage of one segment and hands out sessions.
type Directory interface {
	// Path returns the location of the segment.
	Path() string
	// DiskSizeBytes returns the bytes used by the committed segment.
	DiskSizeBytes() (int64, error)
	// CreateReader opens a read session. It fails with ErrSessionConflict
	// while a writer is open.
	CreateReader() (Reader, error)
	// CreateWriter opens the write session. It fails with
	// ErrSessionConflict while any session is open.
	CreateWriter() (Writer, error)
	// Close releases the directory. Sessions must be closed first.
	Close() error
}

// Reader is a read session. Buffers it returns are valid until Close.
type Reader interface {
	// IndexFor returns the buffer of a (column, type) pair.
	IndexFor(column string, typ ColumnIndexType) (*buffer.Buffer, error)
	// HasIndexFor reports whether a buffer exists for the pair.
	HasIndexFor(column string, typ ColumnIndexType) bool
	// HasStarTree reports whether the segment has a star-tree stream.
	HasStarTree() bool
	// StarTreeStream opens the star-tree stream.
	StarTreeStream() (io.ReadCloser, error)
	// StarTreeFile returns the path of the star-tree stream, or "" if absent.
	StarTreeFile() string
	// Close releases every buffer and stream issued by the session.
	Close() error
}

// Writer is the exclusive write session. Changes are staged until
// SaveAndClose and discarded by AbortAndClose or Close.
type Writer interface {
	Reader
	// NewIndexFor allocates a zero-filled writable buffer, replacing any
	// existing buffer of the pair on commit.
	NewIndexFor(column string, typ ColumnIndexType, sizeBytes int64) (*buffer.Buffer, error)
	// IsIndexRemovalSupported reports whether RemoveIndex is available.
	IsIndexRemovalSupported() bool
	// RemoveIndex deletes the buffer of the pair on commit.
	RemoveIndex(column string, typ ColumnIndexType) error
	// RemoveStarTree deletes the star-tree stream on commit.
	RemoveStarTree() error
	// StarTreeOutputStream replaces the star-tree stream on commit.
	StarTreeOutputStream() (io.WriteCloser, error)
	// SaveAndClose commits staged changes and closes the session. The commit
	// is not atomic.
	SaveAndClose() error
	// AbortAndClose discards staged changes and closes the session.
	AbortAndClose() error
	// Directory returns the directory the session belongs to.
	Directory() Directory
}

type sessionState struct {
	readers int
	writer  bool
}

// LocalDirectory is a Directory on a local file system.
type LocalDirectory struct {
	path string
	opts options

	mu        sync.Mutex
	state     sessionState
	closed    bool
	committed *indexMap
}

var _ Directory = (*LocalDirectory)(nil)

// OpenLocal opens or creates the segment directory at path.
func OpenLocal(path string, optFns ...Option) (*LocalDirectory, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := opts.fsys.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("segment: create %s: %w", abs, err)
	}
	// Left behind by a writer that did not finish.
	if err := opts.fsys.RemoveAll(filepath.Join(abs, stagingDir)); err != nil {
		return nil, fmt.Errorf("segment: clean staging: %w", err)
	}

	m, err := loadIndexMap(opts.fsys, abs)
	if err != nil {
		return nil, fmt.Errorf("segment: load index map: %w", err)
	}

	opts.logger = opts.logger.With(slog.String("segment", abs))
	opts.logger.Debug("opened segment directory",
		slog.Int("indexes", len(m.Entries)),
		slog.Bool("star_tree", m.StarTree != nil),
		slog.String("read_mode", opts.readMode.String()))

	return &LocalDirectory{path: abs, opts: opts, committed: m}, nil
}

// Path returns the absolute directory path.
func (d *LocalDirectory) Path() string { return d.path }

// ReadMode returns the configured buffer read mode.
func (d *LocalDirectory) ReadMode() buffer.ReadMode { return d.opts.readMode }

// DiskSizeBytes returns the size of all committed files including the index
// map. Staged data is not counted.
func (d *LocalDirectory) DiskSizeBytes() (int64, error) {
	d.mu.Lock()
	m := d.committed
	d.mu.Unlock()

	size := m.totalSize()
	fi, err := d.opts.fsys.Stat(filepath.Join(d.path, indexMapFile))
	switch {
	case err == nil:
		size += fi.Size()
	case !os.IsNotExist(err):
		return 0, err
	}
	return size, nil
}

// CreateReader opens a read session over the committed state.
func (d *LocalDirectory) CreateReader() (Reader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrUseAfterClose
	}
	if d.state.writer {
		d.conflict("reader")
		return nil, fmt.Errorf("%w: writer session is open", ErrSessionConflict)
	}
	d.state.readers++
	return newReader(d, d.committed), nil
}

// CreateWriter opens the write session.
func (d *LocalDirectory) CreateWriter() (Writer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrUseAfterClose
	}
	if d.state.writer || d.state.readers > 0 {
		d.conflict("writer")
		return nil, fmt.Errorf("%w: %d reader(s), writer open: %t", ErrSessionConflict, d.state.readers, d.state.writer)
	}
	d.state.writer = true
	return newWriter(d, d.committed), nil
}

// conflict must be called with d.mu held.
func (d *LocalDirectory) conflict(requested string) {
	d.opts.logger.Warn("session conflict",
		slog.String("requested", requested),
		slog.Int("readers", d.state.readers),
		slog.Bool("writer", d.state.writer))
	if d.opts.hooks.OnSessionConflict != nil {
		d.opts.hooks.OnSessionConflict(requested)
	}
}

func (d *LocalDirectory) releaseReader() {
	d.mu.Lock()
	d.state.readers--
	d.mu.Unlock()
}

func (d *LocalDirectory) releaseWriter(published *indexMap) {
	d.mu.Lock()
	if published != nil {
		d.committed = published
	}
	d.state.writer = false
	d.mu.Unlock()
}

// Close releases the directory. It fails with ErrSessionConflict while
// sessions are open and is a no-op when already closed.
func (d *LocalDirectory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	if d.state.writer || d.state.readers > 0 {
		return fmt.Errorf("%w: cannot close with open sessions", ErrSessionConflict)
	}
	d.closed = true
	return nil
}

func (d *LocalDirectory) filePath(name string) string {
	return filepath.Join(d.path, name)
}

func (d *LocalDirectory) stagingPath(name string) string {
	return filepath.Join(d.path, stagingDir, name)
}

// loadBuffer opens a committed file read-only in the configured mode.
func (d *LocalDirectory) loadBuffer(name string, size int64) (*buffer.Buffer, error) {
	f, err := d.opts.fsys.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() != size {
		return nil, fmt.Errorf("%w: %s has %d bytes, index map records %d", ErrCorrupted, filepath.Base(name), fi.Size(), size)
	}

	if d.opts.readMode == buffer.ReadModeHeap {
		rc := d.opts.rc
		if err := rc.AcquireMemory(size); err != nil {
			return nil, err
		}
		data := mem.AllocAligned(int(size))
		if _, err := io.ReadFull(f, data); err != nil {
			rc.ReleaseMemory(size)
			return nil, err
		}
		return buffer.Wrap(data, false, func() error {
			rc.ReleaseMemory(size)
			return nil
		}), nil
	}

	m, err := mmap.Map(f, int(size), false)
	if err != nil {
		return nil, err
	}
	_ = m.Advise(mmap.AccessRandom)
	return buffer.FromMapping(m), nil
}

// allocBuffer creates a zero-filled writable buffer backed by the staging
// file name.
func (d *LocalDirectory) allocBuffer(name string, size int64) (*buffer.Buffer, error) {
	if d.opts.readMode == buffer.ReadModeHeap {
		rc := d.opts.rc
		if err := rc.AcquireMemory(size); err != nil {
			return nil, err
		}
		return buffer.Wrap(mem.AllocAligned(int(size)), true, func() error {
			rc.ReleaseMemory(size)
			return nil
		}), nil
	}

	f, err := d.opts.fsys.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, int(size), true)
	if err != nil {
		return nil, err
	}
	return buffer.FromMapping(m), nil
}
