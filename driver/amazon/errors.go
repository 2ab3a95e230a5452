package amazon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/anand870/cloudstorage"
)

// translateErr maps a backend failure onto the shared error taxonomy,
// wrapping the original error so the native diagnostic stays visible. The
// SDK models some failures as typed errors and the rest as generic
// smithy.APIError codes; both are checked.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var (
		noBucket     *types.NoSuchBucket
		noKey        *types.NoSuchKey
		notFound     *types.NotFound
		bucketExists *types.BucketAlreadyExists
		bucketOwned  *types.BucketAlreadyOwnedByYou
	)
	switch {
	case errors.As(err, &noBucket), errors.As(err, &noKey), errors.As(err, &notFound):
		return fmt.Errorf("%w: %w", cloudstorage.ErrNotFound, err)
	case errors.As(err, &bucketExists), errors.As(err, &bucketOwned):
		return fmt.Errorf("%w: %w", cloudstorage.ErrAlreadyExists, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %w", cloudstorage.ErrNotFound, err)
		case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
			return fmt.Errorf("%w: %w", cloudstorage.ErrAlreadyExists, err)
		case "BucketNotEmpty":
			return fmt.Errorf("%w: %w", cloudstorage.ErrNotEmpty, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return fmt.Errorf("%w: %w", cloudstorage.ErrPermissionDenied, err)
		case "InvalidBucketName":
			return fmt.Errorf("%w: %w", cloudstorage.ErrInvalidName, err)
		case "EntityTooLarge":
			return fmt.Errorf("%w: %w", cloudstorage.ErrTooLarge, err)
		case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return fmt.Errorf("%w: %w", cloudstorage.ErrTransientTransfer, err)
		}
		return err
	}

	if unreachable(err) {
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
