package cloudstorage

import (
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"time"
)

// Container is a named namespace of blobs. Its methods delegate to the
// driver that produced it, so a container obtained from a local driver and
// one obtained from an object-store driver behave identically.
type Container struct {
	// Name is unique within the owning driver's namespace.
	Name string
	// CreatedAt is the creation timestamp, when the backend reports one.
	CreatedAt time.Time
	// Metadata holds backend-specific container metadata.
	Metadata map[string]string

	driver Driver
}

// NewContainer binds a container entity to the driver that produced it.
// Driver implementations call this when materializing lookup or listing
// results.
func NewContainer(d Driver, c Container) *Container {
	c.driver = d
	return &c
}

// Upload streams r into a blob named name, replacing any existing blob of
// that name. See Driver.Upload for the atomicity guarantee.
func (c *Container) Upload(ctx context.Context, name string, r io.Reader, opts ...UploadOption) (*Blob, error) {
	return c.driver.Upload(ctx, c.Name, name, r, opts...)
}

// UploadFile uploads the file at path, deriving the blob name from the
// file's base name and the declared size from the file's length. The
// content type is sniffed from the content unless overridden.
func (c *Container) UploadFile(ctx context.Context, path string, opts ...UploadOption) (*Blob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	merged := append([]UploadOption{WithSize(fi.Size())}, opts...)
	return c.driver.Upload(ctx, c.Name, filepath.Base(path), f, merged...)
}

// Download returns a lazy single-pass stream of the named blob's content.
func (c *Container) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	return c.driver.Download(ctx, c.Name, name)
}

// Blob fetches metadata for the named blob.
func (c *Container) Blob(ctx context.Context, name string) (*Blob, error) {
	return c.driver.Blob(ctx, c.Name, name)
}

// Blobs returns a lazy sequence of the container's blobs with the given
// name prefix. Pass an empty prefix to enumerate everything.
func (c *Container) Blobs(ctx context.Context, prefix string) iter.Seq2[*Blob, error] {
	return c.driver.Blobs(ctx, c.Name, prefix)
}

// DeleteBlob removes the named blob.
func (c *Container) DeleteBlob(ctx context.Context, name string) error {
	return c.driver.DeleteBlob(ctx, c.Name, name)
}

// Delete removes the container. Without force it fails with ErrNotEmpty
// when blobs remain; with force the blobs are deleted first.
func (c *Container) Delete(ctx context.Context, force bool) error {
	return c.driver.DeleteContainer(ctx, c.Name, force)
}
