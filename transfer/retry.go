package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/anand870/cloudstorage"
)

// Transient reports whether err is worth retrying: network timeouts, reset
// or broken connections, truncated reads, or anything already classified as
// cloudstorage.ErrTransientTransfer.
//
// Connection-refused is deliberately excluded; an endpoint that refuses
// connections is unavailable, not flaky, and maps to ErrBackendUnavailable
// at the driver layer.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, cloudstorage.ErrTransientTransfer) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// Retry runs fn up to the engine's attempt cap, backing off between
// attempts. Non-transient failures return immediately; exhausting the cap
// wraps the last failure in cloudstorage.ErrFatalTransfer. op names the
// operation in logs and the final error.
func (e *Engine) Retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return err
		}
		lastErr = err
		e.logger.Debug("transient failure",
			"op", op, "attempt", attempt, "max_attempts", e.maxAttempts, "error", err)
		if attempt < e.maxAttempts {
			if err := e.sleep(ctx, attempt); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w: %s exhausted %d attempts: %w",
		cloudstorage.ErrFatalTransfer, op, e.maxAttempts, lastErr)
}
