// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with read/write/sync capabilities and access to its descriptor
//   - [FileSystem]: filesystem operations (open, remove, rename, etc.)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the standard os package
//   - [FaultyFS]: test utility that injects I/O errors by path pattern
//
// # Usage
//
// Production code should use fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
//
// Tests can inject [FaultyFS] to make a segment commit fail half-way:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("index_map", fs.Fault{FailOnRename: true})
//
// # Design Notes
//
// Operations take no context.Context. Local filesystem calls are not
// interruptible at the syscall level; remote storage goes through blobstore.
package fs
