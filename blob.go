package cloudstorage

import (
	"context"
	"io"
	"time"
)

// Blob is a stored object's metadata plus a handle back to the driver that
// produced it. Fields reflect the backend's state at the time of the call
// that returned the blob; no client-side caching happens across calls.
type Blob struct {
	// Container is the name of the owning container.
	Container string
	// Name is the blob's key within the container.
	Name string
	// Size is the content length in bytes as confirmed by the backend.
	Size int64
	// ContentType is the MIME type, when the backend reports one.
	ContentType string
	// Checksum is the backend's opaque content checksum (hex MD5 for the
	// built-in backends).
	Checksum string
	// ETag is the backend's entity tag, stripped of surrounding quotes.
	ETag string
	// ModifiedAt is the last-modified timestamp, when reported.
	ModifiedAt time.Time
	// Metadata holds backend-specific user metadata.
	Metadata map[string]string

	driver Driver
}

// NewBlob binds a blob entity to the driver that produced it. Driver
// implementations call this when materializing lookup or listing results.
func NewBlob(d Driver, blob Blob) *Blob {
	blob.driver = d
	return &blob
}

// Download returns a lazy single-pass stream of the blob's content.
func (b *Blob) Download(ctx context.Context) (io.ReadCloser, error) {
	return b.driver.Download(ctx, b.Container, b.Name)
}

// DownloadTo streams the blob's content into w.
func (b *Blob) DownloadTo(ctx context.Context, w io.Writer) error {
	rc, err := b.driver.Download(ctx, b.Container, b.Name)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	_, err = io.Copy(w, rc)
	return err
}

// Delete removes the blob from its container.
func (b *Blob) Delete(ctx context.Context) error {
	return b.driver.DeleteBlob(ctx, b.Container, b.Name)
}
