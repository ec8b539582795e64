package cache

import "context"

// Kind separates key spaces.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBlob         // blob store blocks
	KindIndex        // decoded index files
)

// Key identifies a cached block.
type Key struct {
	Kind Kind
	// Path names the source, for example a blob name.
	Path string
	// Offset is a logical block identifier.
	Offset uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	Close() error
	Stats() (hits, misses int64)
}

// ForPath matches every key of the given kind and path.
func ForPath(kind Kind, path string) func(Key) bool {
	return func(k Key) bool { return k.Kind == kind && k.Path == path }
}
