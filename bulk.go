package cloudstorage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// bulkConcurrency bounds how many transfers a bulk call runs at once.
const bulkConcurrency = 8

// BulkUpload uploads every source into the container concurrently, keyed by
// blob name. It returns the uploaded blobs keyed the same way. The first
// failure cancels the remaining transfers and is returned; already-uploaded
// blobs are left in place.
func BulkUpload(ctx context.Context, c *Container, sources map[string]io.Reader, opts ...UploadOption) (map[string]*Blob, error) {
	if len(sources) == 0 {
		return map[string]*Blob{}, nil
	}

	var (
		mu    sync.Mutex
		blobs = make(map[string]*Blob, len(sources))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)

	for name, src := range sources {
		g.Go(func() error {
			b, err := c.Upload(ctx, name, src, opts...)
			if err != nil {
				return err
			}
			mu.Lock()
			blobs[name] = b
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blobs, nil
}

// BulkDownload downloads the named blobs concurrently into dir, one file
// per blob named after the blob's base name. It returns the written paths
// keyed by blob name. The first failure cancels the remaining transfers.
func BulkDownload(ctx context.Context, c *Container, names []string, dir string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		paths = make(map[string]string, len(names))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)

	for _, name := range names {
		g.Go(func() error {
			rc, err := c.Download(ctx, name)
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()

			dest := filepath.Join(dir, filepath.Base(name))
			f, err := os.Create(dest)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, rc); err != nil {
				_ = f.Close()
				_ = os.Remove(dest)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			mu.Lock()
			paths[name] = dest
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
