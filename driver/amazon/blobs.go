package amazon

import (
	"context"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/anand870/cloudstorage"
	"github.com/anand870/cloudstorage/transfer"
)

// uploadConcurrency is how many parts the multipart uploader sends in
// parallel.
const uploadConcurrency = 5

// Upload streams r into an object. The payload rides through the transfer
// engine on a pipe, so size caps, throttling and chunk retry apply exactly
// as on the local driver. Small payloads with a declared size go through a
// single PutObject; everything else goes through the multipart upload
// manager, which aborts the session on failure so the backend never
// exposes a partially written object.
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

	putErr := d.put(ctx, container, name, pr, o)
	_ = pr.CloseWithError(putErr)
	res := <-copied

	if putErr != nil || res.err != nil {
		// A failed put propagates through the pipe into the copy result
		// and vice versa; translate whichever side surfaced first. Engine
		// errors that already carry a taxonomy kind pass through
		// untouched, and the upload manager has aborted any multipart
		// session it opened.
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

func (d *Driver) put(ctx context.Context, container, name string, body io.Reader, o cloudstorage.UploadOptions) error {
	if o.Size >= 0 && o.Size <= d.engine.MultipartThreshold() {
		_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(container),
			Key:           aws.String(name),
			Body:          body,
			ContentLength: aws.Int64(o.Size),
			ContentType:   aws.String(o.ContentType),
			Metadata:      o.Metadata,
		})
		return err
	}

	uploader := manager.NewUploader(d.client, func(u *manager.Uploader) {
		u.PartSize = d.engine.PartSize()
		u.Concurrency = uploadConcurrency
		u.LeavePartsOnError = false
	})
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(container),
		Key:         aws.String(name),
		Body:        body,
		ContentType: aws.String(o.ContentType),
		Metadata:    o.Metadata,
	})
	return err
}

// Download returns the object's content stream. An absent blob fails
// eagerly with ErrNotFound.
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
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return out.Body, nil
}

// Blob stats the object and materializes its metadata.
func (d *Driver) Blob(ctx context.Context, container, name string) (*cloudstorage.Blob, error) {
	if err := cloudstorage.ValidateBlobName(name); err != nil {
		return nil, err
	}
	out, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, translateErr(err)
	}

	etag := strings.Trim(aws.ToString(out.ETag), `"`)
	return cloudstorage.NewBlob(d, cloudstorage.Blob{
		Container:   container,
		Name:        name,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		Checksum:    etag,
		ETag:        etag,
		ModifiedAt:  aws.ToTime(out.LastModified).UTC(),
		Metadata:    out.Metadata,
	}), nil
}

// Blobs streams the bucket's keys with the given prefix. The ListObjectsV2
// paginator pulls pages on demand; the iterator hides the continuation
// tokens. Each range over the sequence re-queries the backend.
func (d *Driver) Blobs(ctx context.Context, container, prefix string) iter.Seq2[*cloudstorage.Blob, error] {
	return func(yield func(*cloudstorage.Blob, error) bool) {
		start := time.Now()
		var listErr error
		defer func() { d.metrics.RecordList(time.Since(start), listErr) }()

		// Listing an absent bucket should fail like every other operation.
		if _, err := d.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(container)}); err != nil {
			listErr = translateErr(err)
			yield(nil, listErr)
			return
		}

		paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(container),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				listErr = translateErr(err)
				yield(nil, listErr)
				return
			}
			for _, obj := range page.Contents {
				etag := strings.Trim(aws.ToString(obj.ETag), `"`)
				blob := cloudstorage.NewBlob(d, cloudstorage.Blob{
					Container:  container,
					Name:       aws.ToString(obj.Key),
					Size:       aws.ToInt64(obj.Size),
					Checksum:   etag,
					ETag:       etag,
					ModifiedAt: aws.ToTime(obj.LastModified).UTC(),
				})
				if !yield(blob, nil) {
					return
				}
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
	if _, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(name),
	}); err != nil {
		return translateErr(err)
	}
	if _, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(name),
	}); err != nil {
		return translateErr(err)
	}
	d.logger.WithContainer(container).WithBlob(name).Debug("blob deleted")
	return nil
}
