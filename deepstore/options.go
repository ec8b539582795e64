package deepstore

import (
	"log/slog"

	"github.com/hupe1980/colseg/codec"
	"github.com/hupe1980/colseg/internal/fs"
	"github.com/hupe1980/colseg/internal/resource"
)

// Option configures Push and Fetch.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	compression Compression
	blockSize   int
	concurrency int
	codec       codec.Codec
	fsys        fs.FileSystem
	rc          *resource.Controller
	verify      bool
}

func defaultOptions() options {
	return options{
		logger:      slog.New(slog.DiscardHandler),
		compression: CompressionZSTD,
		blockSize:   DefaultBlockSize,
		concurrency: 4,
		codec:       codec.Default,
		fsys:        fs.Default,
		verify:      true,
	}
}

func applyOptions(optFns []Option) options {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCompression sets the block codec of pushed files. Default: zstd.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithBlockSize sets the uncompressed block size of pushed files.
func WithBlockSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.blockSize = n
		}
	}
}

// WithConcurrency bounds the number of files transferred at once.
// The resource controller's transfer slots apply in addition.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithCodec sets the descriptor codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithFileSystem sets the local file system.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithResourceController limits concurrent transfers and IO bandwidth.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) { o.rc = rc }
}

// WithVerify controls whether Fetch runs segment.Verify on the downloaded
// directory before installing it. Default: true.
func WithVerify(enabled bool) Option {
	return func(o *options) { o.verify = enabled }
}
