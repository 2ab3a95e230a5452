package cloudstorage

import (
	"context"
	"io"
	"iter"
)

// Kind identifies a concrete storage backend implementation.
type Kind string

const (
	// KindLocal is the local filesystem backend.
	KindLocal Kind = "local"
	// KindMinio is the S3-compatible backend built on minio-go.
	KindMinio Kind = "minio"
	// KindS3 is the Amazon S3 backend built on aws-sdk-go-v2.
	KindS3 Kind = "s3"
)

// Driver is the top-level entry point bound to one storage backend.
//
// A driver owns one session (filesystem root, or HTTP client pool plus
// credentials) shared by every Container and Blob it produces. Drivers are
// safe for concurrent use; operations on the same blob issued concurrently
// are not serialized by this layer.
//
// Application code usually calls the container-level operations and then
// works through the Container and Blob entities, which delegate back to the
// driver. The blob-level methods take the container name explicitly so that
// entities stay plain data.
type Driver interface {
	// Kind reports which backend this driver is bound to.
	Kind() Kind

	// CreateContainer creates a new, empty container. It fails with
	// ErrAlreadyExists when the name is taken and ErrInvalidName when the
	// name violates the backend's naming rules.
	CreateContainer(ctx context.Context, name string) (*Container, error)

	// Container looks up an existing container, failing with ErrNotFound
	// when it is absent.
	Container(ctx context.Context, name string) (*Container, error)

	// Containers returns a lazy sequence of all containers in lexicographic
	// name order. Ranging over the sequence again re-queries the backend.
	Containers(ctx context.Context) iter.Seq2[*Container, error]

	// DeleteContainer removes a container. It fails with ErrNotFound when
	// the container is absent and with ErrNotEmpty when it still holds
	// blobs, unless force is set, in which case the blobs are deleted
	// first.
	DeleteContainer(ctx context.Context, name string, force bool) error

	// Upload streams r into a new or replaced blob and returns the blob
	// with backend-confirmed size and checksum. A failed transfer leaves
	// either no object or the previous object intact, never a truncated
	// one.
	Upload(ctx context.Context, container, name string, r io.Reader, opts ...UploadOption) (*Blob, error)

	// Download returns a lazy single-pass stream of the blob's content.
	// The caller must close it; closing early releases the underlying
	// file handle or connection.
	Download(ctx context.Context, container, name string) (io.ReadCloser, error)

	// Blob fetches a blob's metadata, failing with ErrNotFound when the
	// blob is absent.
	Blob(ctx context.Context, container, name string) (*Blob, error)

	// Blobs returns a lazy sequence of the container's blobs whose names
	// start with prefix (all blobs when prefix is empty), in lexicographic
	// name order. Backend pagination is hidden behind the iterator.
	Blobs(ctx context.Context, container, prefix string) iter.Seq2[*Blob, error]

	// DeleteBlob removes a blob, failing with ErrNotFound when it is
	// absent. The not-found policy is uniform across backends.
	DeleteBlob(ctx context.Context, container, name string) error

	// Close releases the driver's session. The driver must not be used
	// afterwards.
	Close() error
}
