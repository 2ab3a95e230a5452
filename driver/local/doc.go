// Package local implements the cloudstorage driver for a mounted
// filesystem.
//
// Containers map to subdirectories of a configured root and blobs to files
// within them; nested blob names create nested directories. Content type,
// checksum and user metadata live in JSON sidecars under a reserved ".meta"
// directory per container, so sidecars can never collide with blob names.
//
// Uploads stream into a temporary file and atomically rename it into place
// on completion: concurrent writers to one blob name race to last-writer-
// wins, but a partially written blob is never visible.
package local
