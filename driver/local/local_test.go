package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand870/cloudstorage"
	"github.com/anand870/cloudstorage/driver/local"
	"github.com/anand870/cloudstorage/drivertest"
	"github.com/anand870/cloudstorage/transfer"
)

func newDriver(t *testing.T) *local.Driver {
	t.Helper()
	d, err := local.New(t.TempDir(),
		local.WithEngine(transfer.New(transfer.WithMaxBlobSize(64<<20))),
	)
	require.NoError(t, err)
	return d
}

func TestDriverConformance(t *testing.T) {
	drivertest.Run(t, func(t *testing.T) cloudstorage.Driver {
		return newDriver(t)
	}, drivertest.Config{})
}

func TestMetadataSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	d, err := local.New(root)
	require.NoError(t, err)
	c, err := d.CreateContainer(ctx, "photos")
	require.NoError(t, err)

	uploaded, err := c.Upload(ctx, "cat.txt", strings.NewReader("meow"),
		cloudstorage.WithContentType("text/plain"),
		cloudstorage.WithMetadata(map[string]string{"camera": "phone"}),
	)
	require.NoError(t, err)

	// A fresh driver over the same root reads the same metadata back.
	d2, err := local.New(root)
	require.NoError(t, err)
	blob, err := d2.Blob(ctx, "photos", "cat.txt")
	require.NoError(t, err)
	assert.Equal(t, uploaded.Size, blob.Size)
	assert.Equal(t, uploaded.Checksum, blob.Checksum)
	assert.Equal(t, "text/plain", blob.ContentType)
	assert.Equal(t, map[string]string{"camera": "phone"}, blob.Metadata)
}

func TestBlobWithoutSidecar(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	d, err := local.New(root)
	require.NoError(t, err)
	_, err = d.CreateContainer(ctx, "plain")
	require.NoError(t, err)

	// A file dropped into the tree out of band still stats.
	require.NoError(t, os.WriteFile(filepath.Join(root, "plain", "raw.bin"), []byte("data"), 0o644))

	blob, err := d.Blob(ctx, "plain", "raw.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(4), blob.Size)
	assert.Empty(t, blob.Checksum)
}

func TestTraversalRejected(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	c, err := d.CreateContainer(ctx, "jail")
	require.NoError(t, err)

	for _, name := range []string{
		"../outside.txt",
		"a/../../outside.txt",
		"/etc/passwd",
		`..\outside.txt`,
	} {
		_, err := c.Upload(ctx, name, strings.NewReader("x"))
		assert.ErrorIs(t, err, cloudstorage.ErrInvalidName, "name %q", name)
	}
}

func TestMetaDirReserved(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	c, err := d.CreateContainer(ctx, "box")
	require.NoError(t, err)

	_, err = c.Upload(ctx, ".meta/shadow.json", strings.NewReader("{}"))
	require.ErrorIs(t, err, cloudstorage.ErrInvalidName)

	// Nested segments named .meta are ordinary.
	_, err = c.Upload(ctx, "deep/.meta/ok.txt", strings.NewReader("x"))
	require.NoError(t, err)
}

func TestFailedUploadLeavesNothing(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	d, err := local.New(root)
	require.NoError(t, err)
	c, err := d.CreateContainer(ctx, "stage")
	require.NoError(t, err)

	_, err = c.Upload(ctx, "victim.bin", &brokenReader{})
	require.Error(t, err)

	// No blob, no temp file, no sidecar.
	_, err = c.Blob(ctx, "victim.bin")
	require.ErrorIs(t, err, cloudstorage.ErrNotFound)

	entries, err := os.ReadDir(filepath.Join(root, "stage"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".upload-", "stale temp file left behind")
	}
}

type brokenReader struct{}

func (*brokenReader) Read([]byte) (int, error) {
	return 0, os.ErrClosed
}

func TestStagingFilesInvisible(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	d, err := local.New(root)
	require.NoError(t, err)
	c, err := d.CreateContainer(ctx, "wip")
	require.NoError(t, err)

	_, err = c.Upload(ctx, "real.txt", strings.NewReader("done"))
	require.NoError(t, err)

	// A crashed upload leaves its staging file behind; it must not
	// surface as a blob.
	staging := filepath.Join(root, "wip", ".upload-2364914560")
	require.NoError(t, os.WriteFile(staging, []byte("partial"), 0o600))

	var names []string
	for blob, err := range c.Blobs(ctx, "") {
		require.NoError(t, err)
		names = append(names, blob.Name)
	}
	assert.Equal(t, []string{"real.txt"}, names)

	// The staging prefix is reserved from blob names outright.
	_, err = c.Blob(ctx, ".upload-2364914560")
	require.ErrorIs(t, err, cloudstorage.ErrInvalidName)
	_, err = c.Upload(ctx, ".upload-x", strings.NewReader("no"))
	require.ErrorIs(t, err, cloudstorage.ErrInvalidName)

	// A leftover staging file alone does not make the container
	// non-empty.
	require.NoError(t, c.DeleteBlob(ctx, "real.txt"))
	require.NoError(t, d.DeleteContainer(ctx, "wip", false))
}

func TestSizeCapMidStream(t *testing.T) {
	ctx := context.Background()
	d, err := local.New(t.TempDir(),
		local.WithEngine(transfer.New(transfer.WithMaxBlobSize(100))),
	)
	require.NoError(t, err)
	c, err := d.CreateContainer(ctx, "cap")
	require.NoError(t, err)

	// Undeclared size: the cap bites during the copy.
	_, err = c.Upload(ctx, "big.bin", bytes.NewReader(make([]byte, 4096)))
	require.ErrorIs(t, err, cloudstorage.ErrTooLarge)
	_, err = c.Blob(ctx, "big.bin")
	require.ErrorIs(t, err, cloudstorage.ErrNotFound)
}

func TestHiddenDirsSkipped(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d, err := local.New(root)
	require.NoError(t, err)

	_, err = d.CreateContainer(ctx, "visible")
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, ".hidden"), 0o755))

	var names []string
	for c, err := range d.Containers(ctx) {
		require.NoError(t, err)
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"visible"}, names)
}

func TestMetricsRecorded(t *testing.T) {
	ctx := context.Background()
	var metrics cloudstorage.BasicMetricsCollector

	d, err := local.New(t.TempDir(), local.WithMetrics(&metrics))
	require.NoError(t, err)
	c, err := d.CreateContainer(ctx, "meter")
	require.NoError(t, err)

	_, err = c.Upload(ctx, "a.txt", strings.NewReader("abc"))
	require.NoError(t, err)
	rc, err := c.Download(ctx, "a.txt")
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	for range c.Blobs(ctx, "") {
	}
	require.NoError(t, c.DeleteBlob(ctx, "a.txt"))
	require.Error(t, c.DeleteBlob(ctx, "a.txt"))

	assert.Equal(t, int64(1), metrics.UploadCount.Load())
	assert.Equal(t, int64(3), metrics.UploadBytes.Load())
	assert.Equal(t, int64(1), metrics.DownloadCount.Load())
	assert.Equal(t, int64(1), metrics.ListCount.Load())
	assert.Equal(t, int64(2), metrics.DeleteCount.Load())
	assert.Equal(t, int64(1), metrics.DeleteErrors.Load())
}

func TestInvalidContainerNames(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	for _, name := range []string{"", "a/b", `a\b`, ".", "..", ".hidden", strings.Repeat("x", 256)} {
		_, err := d.CreateContainer(ctx, name)
		assert.ErrorIs(t, err, cloudstorage.ErrInvalidName, "name %q", name)
	}
}
