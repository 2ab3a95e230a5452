package transfer

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand870/cloudstorage"
)

func TestCopy(t *testing.T) {
	e := New(WithChunkSize(16))
	payload := []byte("a payload long enough to span several chunks of sixteen bytes")
	want := md5.Sum(payload)

	var dst bytes.Buffer
	n, sum, err := e.Copy(context.Background(), &dst, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, dst.Bytes())
	assert.Equal(t, hex.EncodeToString(want[:]), sum)
}

func TestCopyEmpty(t *testing.T) {
	e := New()
	var dst bytes.Buffer
	n, sum, err := e.Copy(context.Background(), &dst, strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", sum) // md5 of nothing
}

func TestCopyEnforcesSizeCap(t *testing.T) {
	e := New(WithChunkSize(8), WithMaxBlobSize(20))

	var dst bytes.Buffer
	n, _, err := e.Copy(context.Background(), &dst, strings.NewReader(strings.Repeat("x", 64)))
	require.ErrorIs(t, err, cloudstorage.ErrTooLarge)
	assert.LessOrEqual(t, n, int64(20))
}

func TestCheckSize(t *testing.T) {
	e := New(WithMaxBlobSize(100))
	assert.NoError(t, e.CheckSize(-1)) // unknown passes
	assert.NoError(t, e.CheckSize(100))
	assert.ErrorIs(t, e.CheckSize(101), cloudstorage.ErrTooLarge)

	unlimited := New()
	assert.NoError(t, unlimited.CheckSize(1<<50))
}

func TestCopyCanceled(t *testing.T) {
	e := New(WithChunkSize(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var dst bytes.Buffer
	_, _, err := e.Copy(ctx, &dst, strings.NewReader("data"))
	require.ErrorIs(t, err, context.Canceled)
}

// flakyReader fails with a transient error a fixed number of times before
// delivering its payload.
type flakyReader struct {
	r        io.Reader
	failures int
}

func (f *flakyReader) Read(p []byte) (int, error) {
	if f.failures > 0 {
		f.failures--
		return 0, syscall.ECONNRESET
	}
	return f.r.Read(p)
}

func TestCopyRetriesTransient(t *testing.T) {
	e := New(WithMaxAttempts(3), WithRetryBackoff(time.Millisecond))

	src := &flakyReader{r: strings.NewReader("eventually"), failures: 2}
	var dst bytes.Buffer
	n, _, err := e.Copy(context.Background(), &dst, src)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, "eventually", dst.String())
}

func TestCopyExhaustsAttempts(t *testing.T) {
	e := New(WithMaxAttempts(2), WithRetryBackoff(time.Millisecond))

	src := &flakyReader{r: strings.NewReader("never"), failures: 10}
	var dst bytes.Buffer
	_, _, err := e.Copy(context.Background(), &dst, src)
	require.ErrorIs(t, err, cloudstorage.ErrFatalTransfer)
	assert.ErrorIs(t, err, syscall.ECONNRESET)
}

func TestCopyStopsOnFatalRead(t *testing.T) {
	e := New(WithMaxAttempts(5), WithRetryBackoff(time.Millisecond))

	boom := errors.New("disk on fire")
	src := io.MultiReader(strings.NewReader("prefix"), &errReader{err: boom})
	var dst bytes.Buffer
	n, _, err := e.Copy(context.Background(), &dst, src)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(6), n)
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

func TestTransient(t *testing.T) {
	assert.False(t, Transient(nil))
	assert.True(t, Transient(cloudstorage.ErrTransientTransfer))
	assert.True(t, Transient(syscall.ECONNRESET))
	assert.True(t, Transient(syscall.EPIPE))
	assert.True(t, Transient(io.ErrUnexpectedEOF))
	assert.False(t, Transient(syscall.ECONNREFUSED))
	assert.False(t, Transient(errors.New("logic error")))
	assert.False(t, Transient(io.EOF))
}

func TestRetry(t *testing.T) {
	e := New(WithMaxAttempts(3), WithRetryBackoff(time.Millisecond))

	calls := 0
	err := e.Retry(context.Background(), "flaky", func() error {
		calls++
		if calls < 3 {
			return syscall.ECONNRESET
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	e := New(WithMaxAttempts(2), WithRetryBackoff(time.Millisecond))

	err := e.Retry(context.Background(), "doomed", func() error {
		return syscall.ECONNRESET
	})
	require.ErrorIs(t, err, cloudstorage.ErrFatalTransfer)
}

func TestRetryNonTransientImmediate(t *testing.T) {
	e := New(WithMaxAttempts(5), WithRetryBackoff(time.Millisecond))

	boom := errors.New("bad request")
	calls := 0
	err := e.Retry(context.Background(), "op", func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRateLimitedCopy(t *testing.T) {
	// 1 KiB chunks at 8 KiB/s with a 1 KiB burst: 4 KiB should take
	// roughly 375ms (three post-burst chunks).
	e := New(WithChunkSize(1024), WithRateLimit(8*1024, 1024))

	var dst bytes.Buffer
	start := time.Now()
	n, _, err := e.Copy(context.Background(), &dst, bytes.NewReader(make([]byte, 4096)))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int64(4096), n)
	assert.Greater(t, elapsed, 200*time.Millisecond, "limiter did not throttle")
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"page.html", "<!DOCTYPE html><html><body>hi</body></html>", "text/html"},
		{"data.json", `{"key": "value"}`, "application/json"},
		{"notes.txt", "plain words", "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, r, err := DetectContentType(tt.name, strings.NewReader(tt.payload))
			require.NoError(t, err)
			assert.Contains(t, ct, tt.want)

			// The sniffed head is stitched back in.
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, string(got))
		})
	}
}

func TestDetectContentTypeExtensionFallback(t *testing.T) {
	// Opaque bytes sniff as octet-stream; the extension decides.
	payload := string([]byte{0x01, 0x02, 0x03, 0x04})
	ct, _, err := DetectContentType("style.css", strings.NewReader(payload))
	require.NoError(t, err)
	assert.Contains(t, ct, "text/css")
}

func TestDetectContentTypeLargeBody(t *testing.T) {
	payload := strings.Repeat("a", sniffLen*3)
	ct, r, err := DetectContentType("big.txt", strings.NewReader(payload))
	require.NoError(t, err)
	assert.Contains(t, ct, "text/plain")

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, got, len(payload))
}
