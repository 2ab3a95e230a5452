package minio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"

	"github.com/minio/minio-go/v7"

	"github.com/anand870/cloudstorage"
)

// translateErr maps a backend failure onto the shared error taxonomy,
// wrapping the original error so the native diagnostic stays visible.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket", "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", cloudstorage.ErrNotFound, err)
	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return fmt.Errorf("%w: %w", cloudstorage.ErrAlreadyExists, err)
	case "BucketNotEmpty":
		return fmt.Errorf("%w: %w", cloudstorage.ErrNotEmpty, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %w", cloudstorage.ErrPermissionDenied, err)
	case "InvalidBucketName", "XMinioInvalidObjectName":
		return fmt.Errorf("%w: %w", cloudstorage.ErrInvalidName, err)
	case "EntityTooLarge":
		return fmt.Errorf("%w: %w", cloudstorage.ErrTooLarge, err)
	case "SlowDown", "RequestTimeout":
		return fmt.Errorf("%w: %w", cloudstorage.ErrTransientTransfer, err)
	}
	if resp.Code == "" && unreachable(err) {
		return fmt.Errorf("%w: %w", cloudstorage.ErrBackendUnavailable, err)
	}
	return err
}

// unreachable reports connection-level failures: refused connections, DNS
// resolution errors, dead endpoints. These are not retried; the endpoint is
// down, not flaky.
func unreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var opErr *net.OpError
		return errors.As(urlErr.Err, &opErr)
	}
	return false
}
