package colseg

import (
	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/deepstore"
	"github.com/hupe1980/colseg/internal/fs"
	"github.com/hupe1980/colseg/internal/resource"
	"github.com/hupe1980/colseg/segment"
)

type options struct {
	readMode         buffer.ReadMode
	padByte          byte
	nullToken        string
	logger           *Logger
	metricsCollector MetricsCollector
	memoryLimit      int64
	ioLimit          int64
	transfers        int64
	removeSupported  bool
	fsys             fs.FileSystem
	deepStore        []deepstore.Option
}

func defaultOptions() options {
	return options{
		readMode:         buffer.ReadModeMmap,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		removeSupported:  true,
		fsys:             fs.Default,
	}
}

// Option configures Open and Fetch.
type Option func(*options)

// WithReadMode selects whether committed buffers are memory-mapped (the
// default) or copied onto the heap.
func WithReadMode(m buffer.ReadMode) Option {
	return func(o *options) {
		o.readMode = m
	}
}

// WithPadByte sets the byte used to pad string dictionary records.
// The default is 0x00.
func WithPadByte(b byte) Option {
	return func(o *options) {
		o.padByte = b
	}
}

// WithNullToken sets the string rendered for the null dictionary entry.
// An empty token keeps dictionary.DefaultNullToken.
func WithNullToken(token string) Option {
	return func(o *options) {
		o.nullToken = token
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithMemoryLimit caps the bytes held by heap-resident buffers.
// Zero disables the limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithIOLimit throttles commit and deep-store IO to bytesPerSec.
// Zero disables throttling.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithMaxConcurrentTransfers bounds parallel deep-store transfers.
func WithMaxConcurrentTransfers(n int64) Option {
	return func(o *options) {
		o.transfers = n
	}
}

// WithIndexRemoval enables or disables Writer.RemoveIndex.
func WithIndexRemoval(enabled bool) Option {
	return func(o *options) {
		o.removeSupported = enabled
	}
}

// WithFileSystem replaces the file system used for local segment files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fsys = fsys
	}
}

// WithDeepStoreOptions passes extra options to Push and Fetch.
func WithDeepStoreOptions(opts ...deepstore.Option) Option {
	return func(o *options) {
		o.deepStore = append(o.deepStore, opts...)
	}
}

func (o *options) resourceController() *resource.Controller {
	if o.memoryLimit <= 0 && o.ioLimit <= 0 && o.transfers <= 0 {
		return nil
	}
	return resource.NewController(resource.Config{
		MemoryLimitBytes:       o.memoryLimit,
		IOLimitBytesPerSec:     o.ioLimit,
		MaxConcurrentTransfers: o.transfers,
	})
}

func (o *options) segmentOptions(rc *resource.Controller, hooks segment.Hooks) []segment.Option {
	return []segment.Option{
		segment.WithLogger(o.logger.Logger),
		segment.WithReadMode(o.readMode),
		segment.WithFileSystem(o.fsys),
		segment.WithResourceController(rc),
		segment.WithIndexRemoval(o.removeSupported),
		segment.WithHooks(hooks),
	}
}

func (o *options) deepStoreOptions(rc *resource.Controller, logger *Logger) []deepstore.Option {
	opts := []deepstore.Option{
		deepstore.WithLogger(logger.Logger),
		deepstore.WithFileSystem(o.fsys),
		deepstore.WithResourceController(rc),
	}
	return append(opts, o.deepStore...)
}
