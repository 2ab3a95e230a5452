// Package cloudstorage provides one uniform API over heterogeneous
// blob-storage backends.
//
// A Driver binds the API to one backend: a directory tree on a local
// filesystem, or a bucket namespace on an S3-compatible object store.
// Application code creates containers, uploads and downloads blobs, and
// enumerates contents without depending on backend-specific semantics.
//
// # Drivers
//
//   - driver/local: containers as subdirectories, blobs as files
//   - driver/minio: S3-compatible endpoints via minio-go
//   - driver/amazon: Amazon S3 via aws-sdk-go-v2
//
// # Usage
//
//	d, err := local.New("/var/lib/blobs")
//	if err != nil { ... }
//	defer d.Close()
//
//	c, err := d.CreateContainer(ctx, "invoices")
//	if err != nil { ... }
//
//	blob, err := c.Upload(ctx, "2026/08/inv-001.pdf", f,
//	    cloudstorage.WithContentType("application/pdf"),
//	)
//
//	for b, err := range c.Blobs(ctx, "2026/08/") {
//	    if err != nil { ... }
//	    fmt.Println(b.Name, b.Size)
//	}
//
// Uploads stream the source without buffering the full payload in memory,
// and are atomic: a failed transfer never leaves a partially written object
// visible. Listings are lazy and restartable; backend pagination stays
// hidden behind the iterator.
//
// # Errors
//
// Failures carry one of the package's sentinel kinds and preserve the
// backend's native diagnostic:
//
//	if errors.Is(err, cloudstorage.ErrNotFound) { ... }
package cloudstorage
