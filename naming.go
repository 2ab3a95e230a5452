package cloudstorage

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	validContainerName       = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{1,61}[A-Za-z0-9]$`)
	validContainerNameStrict = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	ipAddressName            = regexp.MustCompile(`^(\d+\.){3}\d+$`)

	collapseSlashes   = regexp.MustCompile(`/+`)
	hostileNameChars  = regexp.MustCompile(`[^a-zA-Z0-9/._-]`)
	collapseUnderbars = regexp.MustCompile(`_+`)
)

// ValidateContainerName checks name against the DNS-style bucket naming
// rules shared by S3-compatible backends: 3-63 characters, starting and
// ending with a letter or digit, no IP-address form, and no ".."/".-"/"-."
// runs. With strict set, uppercase letters, underscores and colons are
// rejected too, matching virtual-host-style addressing.
//
// Violations are reported as ErrInvalidName with the reason attached.
func ValidateContainerName(name string, strict bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: container name is empty", ErrInvalidName)
	}
	if len(name) < 3 {
		return fmt.Errorf("%w: container name %q is shorter than 3 characters", ErrInvalidName, name)
	}
	if len(name) > 63 {
		return fmt.Errorf("%w: container name %q is longer than 63 characters", ErrInvalidName, name)
	}
	if ipAddressName.MatchString(name) {
		return fmt.Errorf("%w: container name %q is an IP address", ErrInvalidName, name)
	}
	for _, run := range []string{"..", ".-", "-."} {
		if strings.Contains(name, run) {
			return fmt.Errorf("%w: container name %q contains %q", ErrInvalidName, name, run)
		}
	}
	if strict {
		if !validContainerNameStrict.MatchString(name) {
			return fmt.Errorf("%w: container name %q contains characters outside [a-z0-9.-]", ErrInvalidName, name)
		}
		return nil
	}
	if !validContainerName.MatchString(name) {
		return fmt.Errorf("%w: container name %q does not follow bucket naming rules", ErrInvalidName, name)
	}
	return nil
}

// ValidateBlobName checks that name is a clean, relative object key. Empty
// names, absolute paths, backslashes, and any ".." segment are rejected
// with ErrInvalidName; the rule is uniform across backends so a traversal
// attempt fails identically everywhere.
func ValidateBlobName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: blob name is empty", ErrInvalidName)
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: blob name %q is absolute", ErrInvalidName, name)
	}
	// A trailing slash names a file on the filesystem backend but a
	// distinct key on object stores; parity requires rejecting it.
	if strings.HasSuffix(name, "/") {
		return fmt.Errorf("%w: blob name %q ends with a slash", ErrInvalidName, name)
	}
	if strings.Contains(name, `\`) {
		return fmt.Errorf("%w: blob name %q contains a backslash", ErrInvalidName, name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: blob name %q contains a parent-directory segment", ErrInvalidName, name)
		}
	}
	if clean := path.Clean(name); clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: blob name %q escapes the container", ErrInvalidName, name)
	}
	return nil
}

// CleanObjectName normalizes a user-supplied object key: surrounding
// slashes go away, slash runs collapse, and characters outside the safe set
// become underscores.
func CleanObjectName(name string) string {
	name = strings.Trim(name, "/")
	name = collapseSlashes.ReplaceAllString(name, "/")
	name = hostileNameChars.ReplaceAllString(name, "_")
	return collapseUnderbars.ReplaceAllString(name, "_")
}

// RandomBlobName returns a random object key, keeping the directory part
// and the extension of the given name so grouping and type inference still
// work. Pass an empty string for a bare random key.
func RandomBlobName(name string) string {
	dir, ext := "", ""
	if name != "" {
		dir = path.Dir(name)
		if dir == "." {
			dir = ""
		}
		ext = path.Ext(name)
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	if dir == "" {
		return random + ext
	}
	return path.Join(dir, random+ext)
}
