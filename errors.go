package cloudstorage

import "errors"

// Sentinel error kinds shared by every backend. Drivers translate their
// native failures into exactly one of these and wrap the original
// diagnostic, so callers match with errors.Is and still see the backend
// message.
var (
	// ErrNotFound indicates an absent container or blob.
	ErrNotFound = errors.New("cloudstorage: not found")

	// ErrAlreadyExists indicates a container create collision.
	ErrAlreadyExists = errors.New("cloudstorage: already exists")

	// ErrNotEmpty indicates a delete of a non-empty container without force.
	ErrNotEmpty = errors.New("cloudstorage: container not empty")

	// ErrInvalidName indicates a container or blob name that violates the
	// backend's naming rules, including path traversal attempts.
	ErrInvalidName = errors.New("cloudstorage: invalid name")

	// ErrTooLarge indicates a blob exceeding the configured size limit.
	ErrTooLarge = errors.New("cloudstorage: blob too large")

	// ErrTransientTransfer indicates a retryable network or I/O failure
	// during a chunked transfer. The transfer engine retries these with
	// backoff before giving up.
	ErrTransientTransfer = errors.New("cloudstorage: transient transfer failure")

	// ErrFatalTransfer indicates exhausted retries or an unrecoverable
	// backend failure during a transfer.
	ErrFatalTransfer = errors.New("cloudstorage: transfer failed")

	// ErrPermissionDenied indicates a credential or ACL rejection.
	ErrPermissionDenied = errors.New("cloudstorage: permission denied")

	// ErrBackendUnavailable indicates an unreachable endpoint or
	// connection failure.
	ErrBackendUnavailable = errors.New("cloudstorage: backend unavailable")
)
