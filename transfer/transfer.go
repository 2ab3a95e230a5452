package transfer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/anand870/cloudstorage"
)

const (
	// DefaultChunkSize is the unit of the copy loop. Context and rate
	// limits are consulted once per chunk.
	DefaultChunkSize = 1 << 20

	// DefaultPartSize is the part size for multipart object-store uploads.
	DefaultPartSize = 8 << 20

	// DefaultMultipartThreshold is the payload size above which
	// object-store drivers switch from a single put to multipart.
	DefaultMultipartThreshold = 16 << 20

	// DefaultMaxAttempts bounds retries of a transient failure.
	DefaultMaxAttempts = 4

	// DefaultRetryBackoff is the initial backoff between attempts; it
	// doubles per retry.
	DefaultRetryBackoff = 200 * time.Millisecond
)

// Engine carries the transfer policy for one driver session.
type Engine struct {
	chunkSize          int
	partSize           int64
	multipartThreshold int64
	maxBlobSize        int64 // 0 means unlimited
	maxAttempts        int
	backoff            time.Duration
	limiter            *rate.Limiter
	logger             *cloudstorage.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithChunkSize sets the copy-loop chunk size in bytes.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithPartSize sets the multipart part size for object-store uploads.
// S3-compatible backends require at least 5 MiB.
func WithPartSize(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.partSize = n
		}
	}
}

// WithMultipartThreshold sets the payload size above which object-store
// drivers switch to multipart uploads.
func WithMultipartThreshold(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.multipartThreshold = n
		}
	}
}

// WithMaxBlobSize caps blob sizes; uploads beyond the cap fail with
// cloudstorage.ErrTooLarge, before any bytes move when the size is declared
// and mid-transfer otherwise. Zero means unlimited.
func WithMaxBlobSize(n int64) Option {
	return func(e *Engine) {
		e.maxBlobSize = n
	}
}

// WithMaxAttempts bounds how often a transient failure is retried.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the initial retry backoff; it doubles per attempt.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.backoff = d
		}
	}
}

// WithRateLimit throttles transfers to bytesPerSecond with the given burst.
// The burst is raised to the chunk size when smaller, so the copy loop can
// always make progress.
func WithRateLimit(bytesPerSecond float64, burst int) Option {
	return func(e *Engine) {
		if bytesPerSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
		}
	}
}

// WithLogger routes the engine's debug logging.
func WithLogger(l *cloudstorage.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Engine with the default policy, adjusted by opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		chunkSize:          DefaultChunkSize,
		partSize:           DefaultPartSize,
		multipartThreshold: DefaultMultipartThreshold,
		maxAttempts:        DefaultMaxAttempts,
		backoff:            DefaultRetryBackoff,
		logger:             cloudstorage.NoopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.limiter != nil && e.limiter.Burst() < e.chunkSize {
		e.limiter.SetBurst(e.chunkSize)
	}
	return e
}

// ChunkSize returns the copy-loop chunk size.
func (e *Engine) ChunkSize() int { return e.chunkSize }

// PartSize returns the multipart part size.
func (e *Engine) PartSize() int64 { return e.partSize }

// MultipartThreshold returns the single-put/multipart switchover size.
func (e *Engine) MultipartThreshold() int64 { return e.multipartThreshold }

// MaxBlobSize returns the configured size cap, zero when unlimited.
func (e *Engine) MaxBlobSize() int64 { return e.maxBlobSize }

// CheckSize rejects a declared payload size that exceeds the cap. Sizes
// below zero mean "unknown" and pass; the cap is then enforced during the
// copy instead.
func (e *Engine) CheckSize(declared int64) error {
	if e.maxBlobSize > 0 && declared > e.maxBlobSize {
		return fmt.Errorf("%w: declared size %d exceeds limit %d",
			cloudstorage.ErrTooLarge, declared, e.maxBlobSize)
	}
	return nil
}

// Copy streams src into dst chunk by chunk and returns the byte count and
// the hex MD5 of everything written. The context is consulted at every
// chunk boundary, transient read failures are retried with backoff, and the
// size cap is enforced as bytes accumulate.
//
// On error the copy stops immediately; dst may have received a partial
// prefix, so callers writing to visible locations must stage into a
// temporary target and discard it on failure.
func (e *Engine) Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, string, error) {
	var (
		written int64
		sum     = md5.New()
		buf     = make([]byte, e.chunkSize)
	)

	for {
		if err := ctx.Err(); err != nil {
			return written, "", err
		}

		n, readErr := e.readChunk(ctx, src, buf)
		if n > 0 {
			if e.maxBlobSize > 0 && written+int64(n) > e.maxBlobSize {
				return written, "", fmt.Errorf("%w: stream exceeds limit %d",
					cloudstorage.ErrTooLarge, e.maxBlobSize)
			}
			if err := e.waitQuota(ctx, n); err != nil {
				return written, "", err
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, "", err
			}
			_, _ = sum.Write(buf[:n])
			written += int64(n)
		}
		if readErr == io.EOF {
			return written, checksumHex(sum), nil
		}
		if readErr != nil {
			return written, "", readErr
		}
	}
}

// readChunk fills buf from src, retrying transient failures of the same
// chunk. It reports io.EOF only once the stream is exhausted.
func (e *Engine) readChunk(ctx context.Context, src io.Reader, buf []byte) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		n, err := src.Read(buf)
		if n > 0 || err == nil || err == io.EOF {
			return n, err
		}
		if !Transient(err) {
			return 0, err
		}
		lastErr = err
		e.logger.Debug("transient read failure",
			"attempt", attempt, "max_attempts", e.maxAttempts, "error", err)
		if attempt < e.maxAttempts {
			if err := e.sleep(ctx, attempt); err != nil {
				return 0, err
			}
		}
	}
	return 0, fmt.Errorf("%w: %d read attempts: %w",
		cloudstorage.ErrFatalTransfer, e.maxAttempts, lastErr)
}

func (e *Engine) waitQuota(ctx context.Context, n int) error {
	if e.limiter == nil {
		return nil
	}
	for n > 0 {
		take := n
		if burst := e.limiter.Burst(); take > burst {
			take = burst
		}
		if err := e.limiter.WaitN(ctx, take); err != nil {
			return err
		}
		n -= take
	}
	return nil
}

func (e *Engine) sleep(ctx context.Context, attempt int) error {
	delay := e.backoff << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func checksumHex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
