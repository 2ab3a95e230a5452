package cloudstorage

// UploadOptions collects the optional parameters of an upload.
type UploadOptions struct {
	// ContentType is the blob's MIME type. When empty, the transfer engine
	// sniffs it from the content and falls back to the name's extension.
	ContentType string

	// Metadata is user metadata persisted alongside the blob.
	Metadata map[string]string

	// Size is the declared content length in bytes, or -1 when unknown.
	// A known size lets the engine reject oversized payloads before any
	// bytes move and lets object-store backends pick single-put versus
	// multipart up front.
	Size int64
}

// UploadOption mutates UploadOptions.
type UploadOption func(*UploadOptions)

// WithContentType sets the blob's MIME type explicitly, disabling sniffing.
func WithContentType(ct string) UploadOption {
	return func(o *UploadOptions) {
		o.ContentType = ct
	}
}

// WithMetadata attaches user metadata to the blob.
func WithMetadata(md map[string]string) UploadOption {
	return func(o *UploadOptions) {
		o.Metadata = md
	}
}

// WithSize declares the content length up front.
func WithSize(n int64) UploadOption {
	return func(o *UploadOptions) {
		o.Size = n
	}
}

// ApplyUploadOptions folds opts over the defaults. Driver implementations
// call this at the top of Upload.
func ApplyUploadOptions(opts ...UploadOption) UploadOptions {
	o := UploadOptions{Size: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
