// Package blobstore abstracts the remote storage that committed segments are
// pushed to and fetched from.
//
// BlobStore is the interface for reading and writing named, immutable blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system
//   - MemoryStore: in-process storage for tests
//   - CachingStore: block cache in front of any other store
//   - s3.Store, s3.DDBCommitStore: Amazon S3, optionally with DynamoDB for
//     the CURRENT pointer
//   - minio.Store: MinIO and other S3-compatible services
//
// Names use forward slashes regardless of platform.
package blobstore
