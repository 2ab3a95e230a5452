package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/anand870/cloudstorage"
	"github.com/anand870/cloudstorage/transfer"
)

// blobPath resolves a blob name inside a container directory, rejecting
// traversal and names that would shadow the sidecar tree.
func (d *Driver) blobPath(container, name string) (dir, dataPath string, err error) {
	dir, err = d.containerDir(container)
	if err != nil {
		return "", "", err
	}
	if err := cloudstorage.ValidateBlobName(name); err != nil {
		return "", "", err
	}
	if first, _, _ := strings.Cut(name, "/"); first == metaDirName || strings.HasPrefix(first, uploadPrefix) {
		return "", "", fmt.Errorf("%w: blob name %q uses a reserved prefix",
			cloudstorage.ErrInvalidName, name)
	}
	return dir, filepath.Join(dir, filepath.FromSlash(name)), nil
}

// Upload streams r into a temporary file inside the container and renames
// it over the target on success, so a failed transfer leaves either no
// blob or the previous blob intact.
func (d *Driver) Upload(ctx context.Context, container, name string, r io.Reader, opts ...cloudstorage.UploadOption) (*cloudstorage.Blob, error) {
	start := time.Now()
	blob, written, err := d.upload(ctx, container, name, r, opts...)
	d.metrics.RecordUpload(written, time.Since(start), err)
	return blob, err
}

func (d *Driver) upload(ctx context.Context, container, name string, r io.Reader, opts ...cloudstorage.UploadOption) (*cloudstorage.Blob, int64, error) {
	dir, dataPath, err := d.blobPath(container, name)
	if err != nil {
		return nil, 0, err
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("%w: container %q", cloudstorage.ErrNotFound, container)
	} else if err != nil {
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

	tmp, err := os.CreateTemp(dir, uploadPrefix+"*")
	if err != nil {
		return nil, 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	written, checksum, err := d.engine.Copy(ctx, tmp, r)
	if err != nil {
		cleanup()
		return nil, written, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return nil, written, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, written, err
	}

	now := time.Now().UTC()
	sc := sidecar{
		Size:        written,
		ContentType: o.ContentType,
		Checksum:    checksum,
		Metadata:    o.Metadata,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	// The sidecar lands before the data file becomes visible, so a crash
	// in between leaves stale metadata but never a visible blob without
	// its record.
	if err := writeSidecar(sidecarPath(dir, name), sc); err != nil {
		_ = os.Remove(tmpPath)
		return nil, written, err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		_ = os.Remove(tmpPath)
		return nil, written, err
	}
	if err := os.Rename(tmpPath, dataPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, written, err
	}

	d.logger.WithContainer(container).WithBlob(name).
		Debug("blob uploaded", "bytes", written, "content_type", o.ContentType)

	return cloudstorage.NewBlob(d, cloudstorage.Blob{
		Container:   container,
		Name:        name,
		Size:        written,
		ContentType: o.ContentType,
		Checksum:    checksum,
		ETag:        checksum,
		ModifiedAt:  now,
		Metadata:    o.Metadata,
	}), written, nil
}

// Download opens the blob's data file. The returned file streams lazily
// and closing it mid-read releases the handle without affecting later
// operations.
func (d *Driver) Download(ctx context.Context, container, name string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := d.download(ctx, container, name)
	d.metrics.RecordDownload(time.Since(start), err)
	return rc, err
}

func (d *Driver) download(ctx context.Context, container, name string) (io.ReadCloser, error) {
	_, dataPath, err := d.blobPath(container, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: blob %q in container %q", cloudstorage.ErrNotFound, name, container)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Blob reads a blob's metadata from its sidecar, synthesizing the record
// from the file itself when the sidecar is missing (e.g. files placed into
// the tree out of band).
func (d *Driver) Blob(ctx context.Context, container, name string) (*cloudstorage.Blob, error) {
	dir, dataPath, err := d.blobPath(container, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fi, err := os.Stat(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: blob %q in container %q", cloudstorage.ErrNotFound, name, container)
	}
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: blob %q in container %q", cloudstorage.ErrNotFound, name, container)
	}

	blob := cloudstorage.Blob{
		Container:  container,
		Name:       name,
		Size:       fi.Size(),
		ModifiedAt: fi.ModTime().UTC(),
	}
	if sc, err := readSidecar(sidecarPath(dir, name)); err == nil {
		blob.Size = sc.Size
		blob.ContentType = sc.ContentType
		blob.Checksum = sc.Checksum
		blob.ETag = sc.Checksum
		blob.Metadata = sc.Metadata
		blob.ModifiedAt = sc.ModifiedAt
	}
	return cloudstorage.NewBlob(d, blob), nil
}

// Blobs walks the container's data files. Keys are collected and sorted per
// iteration so the order matches the object-store backends' lexicographic
// listing; sidecars are read lazily as the consumer pulls.
func (d *Driver) Blobs(ctx context.Context, container, prefix string) iter.Seq2[*cloudstorage.Blob, error] {
	return func(yield func(*cloudstorage.Blob, error) bool) {
		start := time.Now()
		var listErr error
		defer func() { d.metrics.RecordList(time.Since(start), listErr) }()

		dir, err := d.containerDir(container)
		if err != nil {
			listErr = err
			yield(nil, err)
			return
		}
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			listErr = fmt.Errorf("%w: container %q", cloudstorage.ErrNotFound, container)
			yield(nil, listErr)
			return
		} else if err != nil {
			listErr = err
			yield(nil, err)
			return
		}

		names, err := listBlobNames(dir, prefix)
		if err != nil {
			listErr = err
			yield(nil, err)
			return
		}

		for _, name := range names {
			if err := ctx.Err(); err != nil {
				listErr = err
				yield(nil, err)
				return
			}
			blob, err := d.Blob(ctx, container, name)
			if err != nil {
				listErr = err
			}
			if !yield(blob, err) || err != nil {
				return
			}
		}
	}
}

func listBlobNames(dir, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == metaDirName && filepath.Dir(path) == dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), uploadPrefix) && filepath.Dir(path) == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// DeleteBlob removes the data file and its sidecar. A second delete of the
// same name fails with ErrNotFound; the policy matches the object-store
// drivers.
func (d *Driver) DeleteBlob(ctx context.Context, container, name string) error {
	start := time.Now()
	err := d.deleteBlob(ctx, container, name)
	d.metrics.RecordDelete(time.Since(start), err)
	return err
}

func (d *Driver) deleteBlob(ctx context.Context, container, name string) error {
	dir, dataPath, err := d.blobPath(container, name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(dataPath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: blob %q in container %q", cloudstorage.ErrNotFound, name, container)
	} else if err != nil {
		return err
	}

	if err := os.Remove(dataPath); err != nil {
		return err
	}
	_ = os.Remove(sidecarPath(dir, name))

	d.logger.WithContainer(container).WithBlob(name).Debug("blob deleted")
	return nil
}
