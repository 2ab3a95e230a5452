package drivertest

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand870/cloudstorage"
)

// Config tunes the suite for a backend's cost profile.
type Config struct {
	// ListingBlobs is how many blobs the listing-completeness test
	// uploads. Use a value above the backend's page size to prove the
	// iterator crosses page boundaries; defaults to 25.
	ListingBlobs int
	// StrictNames indicates the backend enforces DNS-style bucket naming;
	// the suite then asserts rejection of names outside those rules.
	StrictNames bool
}

// Run exercises the full driver contract. newDriver must return a driver
// whose namespace the suite may freely create and destroy containers in.
func Run(t *testing.T, newDriver func(t *testing.T) cloudstorage.Driver, cfg Config) {
	if cfg.ListingBlobs <= 0 {
		cfg.ListingBlobs = 25
	}

	t.Run("ContainerLifecycle", func(t *testing.T) { testContainerLifecycle(t, newDriver(t)) })
	t.Run("BlobRoundTrip", func(t *testing.T) { testBlobRoundTrip(t, newDriver(t)) })
	t.Run("OverwriteReplaces", func(t *testing.T) { testOverwriteReplaces(t, newDriver(t)) })
	t.Run("DeleteAbsent", func(t *testing.T) { testDeleteAbsent(t, newDriver(t)) })
	t.Run("AtomicUpload", func(t *testing.T) { testAtomicUpload(t, newDriver(t)) })
	t.Run("ListingCompleteness", func(t *testing.T) { testListingCompleteness(t, newDriver(t), cfg.ListingBlobs) })
	t.Run("PrefixFilter", func(t *testing.T) { testPrefixFilter(t, newDriver(t)) })
	t.Run("NonEmptyGuard", func(t *testing.T) { testNonEmptyGuard(t, newDriver(t)) })
	t.Run("InvalidNames", func(t *testing.T) { testInvalidNames(t, newDriver(t), cfg.StrictNames) })
	t.Run("SizeCap", func(t *testing.T) { testSizeCap(t, newDriver(t)) })
}

// newContainer creates a uniquely named container and registers cleanup.
func newContainer(t *testing.T, d cloudstorage.Driver) *cloudstorage.Container {
	t.Helper()

	ctx := context.Background()
	name := "cst-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	c, err := d.CreateContainer(ctx, name)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = d.DeleteContainer(context.Background(), name, true)
	})
	return c
}

func testContainerLifecycle(t *testing.T, d cloudstorage.Driver) {
	ctx := context.Background()
	c := newContainer(t, d)

	// Creating the same name again must collide.
	_, err := d.CreateContainer(ctx, c.Name)
	require.ErrorIs(t, err, cloudstorage.ErrAlreadyExists)

	// Lookup finds it.
	got, err := d.Container(ctx, c.Name)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)

	// It shows up in the enumeration.
	found := false
	for cont, err := range d.Containers(ctx) {
		require.NoError(t, err)
		if cont.Name == c.Name {
			found = true
			break
		}
	}
	assert.True(t, found, "created container missing from listing")

	// Empty delete succeeds; a second delete and a lookup both miss.
	require.NoError(t, d.DeleteContainer(ctx, c.Name, false))
	require.ErrorIs(t, d.DeleteContainer(ctx, c.Name, false), cloudstorage.ErrNotFound)
	_, err = d.Container(ctx, c.Name)
	require.ErrorIs(t, err, cloudstorage.ErrNotFound)
}

func testBlobRoundTrip(t *testing.T, d cloudstorage.Driver) {
	ctx := context.Background()
	c := newContainer(t, d)

	content := []byte("the quick brown fox jumps over the lazy dog")
	sum := md5.Sum(content)

	blob, err := c.Upload(ctx, "docs/pangram.txt", bytes.NewReader(content),
		cloudstorage.WithSize(int64(len(content))),
		cloudstorage.WithMetadata(map[string]string{"origin": "suite"}),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), blob.Size)
	assert.Equal(t, hex.EncodeToString(sum[:]), blob.Checksum)
	assert.Contains(t, blob.ContentType, "text/plain")

	rc, err := c.Download(ctx, "docs/pangram.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, got)

	// Stat agrees with the upload result.
	stat, err := c.Blob(ctx, "docs/pangram.txt")
	require.NoError(t, err)
	assert.Equal(t, blob.Size, stat.Size)
	assert.Equal(t, blob.Checksum, stat.Checksum)

	require.NoError(t, c.DeleteBlob(ctx, "docs/pangram.txt"))
	_, err = c.Blob(ctx, "docs/pangram.txt")
	require.ErrorIs(t, err, cloudstorage.ErrNotFound)
}

func testOverwriteReplaces(t *testing.T, d cloudstorage.Driver) {
	ctx := context.Background()
	c := newContainer(t, d)

	_, err := c.Upload(ctx, "note.txt", strings.NewReader("first version"), cloudstorage.WithSize(13))
	require.NoError(t, err)
	_, err = c.Upload(ctx, "note.txt", strings.NewReader("second"), cloudstorage.WithSize(6))
	require.NoError(t, err)

	rc, err := c.Download(ctx, "note.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "second", string(got))
}

func testDeleteAbsent(t *testing.T, d cloudstorage.Driver) {
	ctx := context.Background()
	c := newContainer(t, d)

	err := c.DeleteBlob(ctx, "never-uploaded.bin")
	require.ErrorIs(t, err, cloudstorage.ErrNotFound)

	_, err = c.Download(ctx, "never-uploaded.bin")
	require.ErrorIs(t, err, cloudstorage.ErrNotFound)
}

// failingReader errors partway through to simulate a broken source.
type failingReader struct {
	data []byte
	off  int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, errors.New("source connection lost")
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}

func testAtomicUpload(t *testing.T, d cloudstorage.Driver) {
	ctx := context.Background()
	c := newContainer(t, d)

	src := &failingReader{data: bytes.Repeat([]byte("x"), 4096)}
	_, err := c.Upload(ctx, "partial.bin", src, cloudstorage.WithSize(1<<20))
	require.Error(t, err)

	// The failed upload must not have left a visible blob.
	_, err = c.Blob(ctx, "partial.bin")
	require.ErrorIs(t, err, cloudstorage.ErrNotFound)
}

func testListingCompleteness(t *testing.T, d cloudstorage.Driver, n int) {
	ctx := context.Background()
	c := newContainer(t, d)

	want := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("bulk/item-%05d.dat", i)
		want[name] = false
		_, err := c.Upload(ctx, name, strings.NewReader("payload"), cloudstorage.WithSize(7))
		require.NoError(t, err)
	}

	var prev string
	count := 0
	for blob, err := range c.Blobs(ctx, "") {
		require.NoError(t, err)
		seen, ok := want[blob.Name]
		require.True(t, ok, "listing produced unknown blob %q", blob.Name)
		require.False(t, seen, "listing produced %q twice", blob.Name)
		want[blob.Name] = true
		assert.Less(t, prev, blob.Name, "listing out of lexicographic order")
		prev = blob.Name
		count++
	}
	assert.Equal(t, n, count)

	// The sequence is restartable: a fresh range sees everything again.
	count = 0
	for _, err := range c.Blobs(ctx, "") {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, n, count)
}

func testPrefixFilter(t *testing.T, d cloudstorage.Driver) {
	ctx := context.Background()
	c := newContainer(t, d)

	for _, name := range []string{"a/1", "a/2", "b/1"} {
		_, err := c.Upload(ctx, name, strings.NewReader("x"), cloudstorage.WithSize(1))
		require.NoError(t, err)
	}

	var got []string
	for blob, err := range c.Blobs(ctx, "a/") {
		require.NoError(t, err)
		got = append(got, blob.Name)
	}
	assert.Equal(t, []string{"a/1", "a/2"}, got)

	got = nil
	for blob, err := range c.Blobs(ctx, "c/") {
		require.NoError(t, err)
		got = append(got, blob.Name)
	}
	assert.Empty(t, got)
}

func testNonEmptyGuard(t *testing.T, d cloudstorage.Driver) {
	ctx := context.Background()
	c := newContainer(t, d)

	_, err := c.Upload(ctx, "keep.txt", strings.NewReader("x"), cloudstorage.WithSize(1))
	require.NoError(t, err)

	require.ErrorIs(t, d.DeleteContainer(ctx, c.Name, false), cloudstorage.ErrNotEmpty)

	// Force delete empties and removes.
	require.NoError(t, d.DeleteContainer(ctx, c.Name, true))
	_, err = d.Container(ctx, c.Name)
	require.ErrorIs(t, err, cloudstorage.ErrNotFound)
}

func testInvalidNames(t *testing.T, d cloudstorage.Driver, strictNames bool) {
	ctx := context.Background()
	c := newContainer(t, d)

	for _, name := range []string{"", "/abs/path", "../escape", "a/../../b", `back\slash`, "trailing.dir/"} {
		_, err := c.Upload(ctx, name, strings.NewReader("x"), cloudstorage.WithSize(1))
		assert.ErrorIs(t, err, cloudstorage.ErrInvalidName, "upload %q", name)

		_, err = c.Blob(ctx, name)
		assert.ErrorIs(t, err, cloudstorage.ErrInvalidName, "stat %q", name)

		assert.ErrorIs(t, c.DeleteBlob(ctx, name), cloudstorage.ErrInvalidName, "delete %q", name)
	}

	// Bucket naming rules only bind object-store backends.
	if strictNames {
		_, err := d.CreateContainer(ctx, "ab")
		assert.ErrorIs(t, err, cloudstorage.ErrInvalidName)
		_, err = d.CreateContainer(ctx, strings.Repeat("x", 64))
		assert.ErrorIs(t, err, cloudstorage.ErrInvalidName)
	}
}

func testSizeCap(t *testing.T, d cloudstorage.Driver) {
	ctx := context.Background()
	c := newContainer(t, d)

	// A declared size over the cap fails before any bytes move. Drivers in
	// this suite are constructed with an engine capped well below 1 TiB.
	_, err := c.Upload(ctx, "huge.bin", strings.NewReader("x"), cloudstorage.WithSize(1<<40))
	if !errors.Is(err, cloudstorage.ErrTooLarge) {
		t.Skipf("driver has no size cap configured, got %v", err)
	}
}
