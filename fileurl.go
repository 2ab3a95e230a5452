package cloudstorage

import (
	"fmt"
	"regexp"
)

// FileURL is a parsed storage reference of the form
// <store>://<container>/<blob>, e.g. "minio://invoices/2026/inv-001.pdf".
// The store part names a configured driver alias, not a wire protocol.
type FileURL struct {
	Store     string
	Container string
	Blob      string
}

func (u FileURL) String() string {
	return fmt.Sprintf("%s://%s/%s", u.Store, u.Container, u.Blob)
}

var (
	fileURLPattern  = regexp.MustCompile(`^([a-zA-Z0-9]{2,})://([^/]+)/(.{2,})$`)
	storageScheme   = regexp.MustCompile(`(?i)minio|fs|gcs|s3|local`)
	transportScheme = regexp.MustCompile(`(?i)^(http|https|ssh|tcp)$`)
)

// IsFileURL reports whether s looks like a storage reference rather than a
// transport URL. "https://..." is not a file URL even though it matches the
// general shape.
func IsFileURL(s string) bool {
	m := fileURLPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	if transportScheme.MatchString(m[1]) {
		return false
	}
	return storageScheme.MatchString(m[1])
}

// ParseFileURL splits a storage reference into its store alias, container
// name and blob name, failing with ErrInvalidName when s is not a file URL.
func ParseFileURL(s string) (FileURL, error) {
	if !IsFileURL(s) {
		return FileURL{}, fmt.Errorf("%w: %q is not a file URL", ErrInvalidName, s)
	}
	m := fileURLPattern.FindStringSubmatch(s)
	return FileURL{Store: m[1], Container: m[2], Blob: m[3]}, nil
}
