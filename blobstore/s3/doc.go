// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("segments/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = deepstore.Push(ctx, "/data/orders_0", store, "orders_0")
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums for large buffers
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//   - DDBCommitStore: DynamoDB conditional writes for the CURRENT pointer
package s3
