package segment

import (
	"log/slog"
	"time"

	"github.com/hupe1980/colseg/buffer"
	"github.com/hupe1980/colseg/internal/fs"
	"github.com/hupe1980/colseg/internal/resource"
)

// Hooks are invoked on session and commit events. Nil fields are skipped.
type Hooks struct {
	// OnCommit is called after every SaveAndClose with the number of staged
	// buffers written and the resulting error.
	OnCommit func(d time.Duration, buffers int, err error)
	// OnAbort is called when a writer discards its changes.
	OnAbort func()
	// OnSessionConflict is called when CreateReader or CreateWriter is refused.
	OnSessionConflict func(requested string)
}

type options struct {
	logger          *slog.Logger
	readMode        buffer.ReadMode
	fsys            fs.FileSystem
	rc              *resource.Controller
	removeSupported bool
	hooks           Hooks
}

func defaultOptions() options {
	return options{
		logger:          slog.New(slog.DiscardHandler),
		readMode:        buffer.ReadModeMmap,
		fsys:            fs.Default,
		removeSupported: true,
	}
}

// Option configures a LocalDirectory.
type Option func(*options)

// WithLogger sets the logger. The default discards all records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithReadMode selects how buffers are loaded.
func WithReadMode(m buffer.ReadMode) Option {
	return func(o *options) {
		o.readMode = m
	}
}

// WithFileSystem replaces the file system, mainly for fault injection in tests.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithResourceController limits heap buffer memory and commit IO.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithIndexRemoval enables or disables RemoveIndex. Enabled by default.
func WithIndexRemoval(enabled bool) Option {
	return func(o *options) {
		o.removeSupported = enabled
	}
}

// WithHooks installs event hooks.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}
