// Package resource bounds the memory, transfer concurrency and IO bandwidth
// used by segment sessions and deep-store transfers.
//
// # Memory
//
// Heap-mode index buffers reserve their bytes before allocation. Reservation
// is non-blocking and fails fast:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 30})
//	if err := rc.AcquireMemory(size); err != nil {
//	    // ErrMemoryLimitExceeded - caller decides what to do
//	}
//	defer rc.ReleaseMemory(size)
//
// # Transfers
//
// Deep-store pushes and fetches take a transfer slot per blob:
//
//	if err := rc.AcquireTransfer(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseTransfer()
//
// # IO Rate Limiting
//
// Token bucket limiter shared by commits and transfers:
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//	r := resource.NewRateLimitedReader(ctx, blob, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller; they become no-ops.
package resource
