package minio

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/anand870/cloudstorage"
	"github.com/anand870/cloudstorage/transfer"
)

// Upload streams r into an object. The payload rides through the transfer
// engine on a pipe, so size caps, throttling and chunk retry apply exactly
// as on the local driver, while minio-go drives the backend's atomic put
// (multipart above the part size, with failed sessions aborted). The
// backend never exposes a partially written object.
func (d *Driver) Upload(ctx context.Context, container, name string, r io.Reader, opts ...cloudstorage.UploadOption) (*cloudstorage.Blob, error) {
	start := time.Now()
	blob, written, err := d.upload(ctx, container, name, r, opts...)
	d.metrics.RecordUpload(written, time.Since(start), err)
	return blob, err
}

func (d *Driver) upload(ctx context.Context, container, name string, r io.Reader, opts ...cloudstorage.UploadOption) (*cloudstorage.Blob, int64, error) {
	if err := cloudstorage.ValidateBlobName(name); err != nil {
		return nil, 0, err
	}

	o := cloudstorage.ApplyUploadOptions(opts...)
	if err := d.engine.CheckSize(o.Size); err != nil {
		return nil, 0, err
	}

	if o.ContentType == "" {
		var sniffErr error
		o.ContentType, r, sniffErr = transfer.DetectContentType(name, r)
		if sniffErr != nil {
			return nil, 0, sniffErr
		}
	}

	pr, pw := io.Pipe()
	type copyResult struct {
		written int64
		err     error
	}
	copied := make(chan copyResult, 1)
	go func() {
		n, _, err := d.engine.Copy(ctx, pw, r)
		_ = pw.CloseWithError(err)
		copied <- copyResult{written: n, err: err}
	}()

	putOpts := minio.PutObjectOptions{
		ContentType:    o.ContentType,
		UserMetadata:   o.Metadata,
		PartSize:       uint64(d.engine.PartSize()),
		SendContentMd5: true,
	}
	_, putErr := d.client.PutObject(ctx, container, name, pr, o.Size, putOpts)
	_ = pr.CloseWithError(putErr)
	res := <-copied

	if putErr != nil || res.err != nil {
		// A failed put propagates through the pipe into the copy result
		// and vice versa; translate whichever side surfaced first. Engine
		// errors that already carry a taxonomy kind pass through
		// untouched, and minio-go has aborted any multipart session it
		// opened.
		err := res.err
		if err == nil {
			err = putErr
		}
		return nil, res.written, translateErr(err)
	}

	d.logger.WithContainer(container).WithBlob(name).
		Debug("blob uploaded", "bytes", res.written, "content_type", o.ContentType)

	// Re-stat for the backend-confirmed size and checksum.
	blob, err := d.Blob(ctx, container, name)
	if err != nil {
		return nil, res.written, err
	}
	return blob, res.written, nil
}

// Download returns the object's content stream. Existence is verified with
// a stat first so an absent blob fails eagerly with ErrNotFound instead of
// on first read.
func (d *Driver) Download(ctx context.Context, container, name string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := d.download(ctx, container, name)
	d.metrics.RecordDownload(time.Since(start), err)
	return rc, err
}

func (d *Driver) download(ctx context.Context, container, name string) (io.ReadCloser, error) {
	if err := cloudstorage.ValidateBlobName(name); err != nil {
		return nil, err
	}
	if _, err := d.client.StatObject(ctx, container, name, minio.StatObjectOptions{}); err != nil {
		return nil, translateErr(err)
	}
	obj, err := d.client.GetObject(ctx, container, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateErr(err)
	}
	return obj, nil
}

// Blob stats the object and materializes its metadata.
func (d *Driver) Blob(ctx context.Context, container, name string) (*cloudstorage.Blob, error) {
	if err := cloudstorage.ValidateBlobName(name); err != nil {
		return nil, err
	}
	info, err := d.client.StatObject(ctx, container, name, minio.StatObjectOptions{})
	if err != nil {
		return nil, translateErr(err)
	}
	return d.blobFromInfo(container, info), nil
}

// Blobs streams the bucket's keys with the given prefix. minio-go pages
// the listing internally; the channel hides the pagination tokens, and the
// iterator hides the channel.
func (d *Driver) Blobs(ctx context.Context, container, prefix string) iter.Seq2[*cloudstorage.Blob, error] {
	return func(yield func(*cloudstorage.Blob, error) bool) {
		start := time.Now()
		var listErr error
		defer func() { d.metrics.RecordList(time.Since(start), listErr) }()

		// Listing silently yields nothing on an absent bucket; check first
		// so the caller sees ErrNotFound like every other operation.
		exists, err := d.client.BucketExists(ctx, container)
		if err != nil {
			listErr = translateErr(err)
			yield(nil, listErr)
			return
		}
		if !exists {
			listErr = fmt.Errorf("%w: container %q", cloudstorage.ErrNotFound, container)
			yield(nil, listErr)
			return
		}

		listCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		for obj := range d.client.ListObjects(listCtx, container, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				listErr = translateErr(obj.Err)
				yield(nil, listErr)
				return
			}
			if !yield(d.blobFromInfo(container, obj), nil) {
				return
			}
		}
	}
}

// DeleteBlob removes an object. The backend treats delete-of-absent as
// success, so a stat enforces the uniform ErrNotFound policy first.
func (d *Driver) DeleteBlob(ctx context.Context, container, name string) error {
	start := time.Now()
	err := d.deleteBlob(ctx, container, name)
	d.metrics.RecordDelete(time.Since(start), err)
	return err
}

func (d *Driver) deleteBlob(ctx context.Context, container, name string) error {
	if err := cloudstorage.ValidateBlobName(name); err != nil {
		return err
	}
	if _, err := d.client.StatObject(ctx, container, name, minio.StatObjectOptions{}); err != nil {
		return translateErr(err)
	}
	if err := d.client.RemoveObject(ctx, container, name, minio.RemoveObjectOptions{}); err != nil {
		return translateErr(err)
	}
	d.logger.WithContainer(container).WithBlob(name).Debug("blob deleted")
	return nil
}

func (d *Driver) blobFromInfo(container string, info minio.ObjectInfo) *cloudstorage.Blob {
	etag := strings.Trim(info.ETag, `"`)
	return cloudstorage.NewBlob(d, cloudstorage.Blob{
		Container:   container,
		Name:        info.Key,
		Size:        info.Size,
		ContentType: info.ContentType,
		Checksum:    etag,
		ETag:        etag,
		ModifiedAt:  info.LastModified.UTC(),
		Metadata:    map[string]string(info.UserMetadata),
	})
}
