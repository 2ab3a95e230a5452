package cloudstorage_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand870/cloudstorage"
	"github.com/anand870/cloudstorage/driver/local"
)

func newTestContainer(t *testing.T) *cloudstorage.Container {
	t.Helper()
	d, err := local.New(t.TempDir())
	require.NoError(t, err)
	c, err := d.CreateContainer(context.Background(), "bulk")
	require.NoError(t, err)
	return c
}

func TestBulkUpload(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	sources := map[string]io.Reader{
		"a.txt":     strings.NewReader("alpha"),
		"b.txt":     strings.NewReader("bravo"),
		"sub/c.txt": strings.NewReader("charlie"),
	}
	blobs, err := cloudstorage.BulkUpload(ctx, c, sources)
	require.NoError(t, err)
	require.Len(t, blobs, 3)
	assert.Equal(t, int64(5), blobs["a.txt"].Size)
	assert.Equal(t, int64(7), blobs["sub/c.txt"].Size)

	rc, err := c.Download(ctx, "b.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "bravo", string(got))
}

func TestBulkUploadEmpty(t *testing.T) {
	c := newTestContainer(t)
	blobs, err := cloudstorage.BulkUpload(context.Background(), c, nil)
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestBulkUploadFailureStops(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	sources := map[string]io.Reader{
		"good.txt":    strings.NewReader("fine"),
		"../bad.txt":  strings.NewReader("nope"),
		"another.txt": strings.NewReader("fine too"),
	}
	_, err := cloudstorage.BulkUpload(ctx, c, sources)
	require.ErrorIs(t, err, cloudstorage.ErrInvalidName)
}

func TestBulkDownload(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	for name, body := range map[string]string{
		"x.txt":       "ex",
		"deep/y.txt":  "why",
		"deep/z.json": `{}`,
	} {
		_, err := c.Upload(ctx, name, strings.NewReader(body))
		require.NoError(t, err)
	}

	dir := t.TempDir()
	paths, err := cloudstorage.BulkDownload(ctx, c, []string{"x.txt", "deep/y.txt"}, dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	got, err := os.ReadFile(filepath.Join(dir, "y.txt"))
	require.NoError(t, err)
	assert.Equal(t, "why", string(got))
}

func TestBulkDownloadMissingBlob(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	_, err := cloudstorage.BulkDownload(ctx, c, []string{"absent.txt"}, t.TempDir())
	require.ErrorIs(t, err, cloudstorage.ErrNotFound)
}

func TestUploadFile(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("quarterly numbers"), 0o644))

	blob, err := c.UploadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", blob.Name)
	assert.Equal(t, int64(17), blob.Size)
	assert.Contains(t, blob.ContentType, "text/plain")
}
