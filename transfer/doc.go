// Package transfer implements the chunked streaming engine shared by every
// storage driver.
//
// An Engine moves bytes between streams in bounded chunks, computing a
// running MD5 checksum, enforcing the configured maximum blob size, and
// optionally throttling throughput. It also owns the cross-driver transfer
// policies: content-type sniffing for uploads that do not declare one, and
// bounded retry with backoff for transient network failures.
//
//	eng := transfer.New(
//	    transfer.WithMaxBlobSize(1<<30),
//	    transfer.WithRateLimit(64<<20, 2<<20),
//	)
//	n, sum, err := eng.Copy(ctx, dst, src)
//
// Drivers embed a shared Engine; constructing one per driver keeps transfer
// policy session-scoped rather than process-global.
package transfer
