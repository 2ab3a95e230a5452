package cloudstorage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFileURL(t *testing.T) {
	yes := []string{
		"minio://invoices/2026/inv-001.pdf",
		"s3://backups/db.dump",
		"local://cache/item.bin",
		"fs://tmp/scratch.txt",
		"gcs://media/video.mp4",
	}
	for _, s := range yes {
		assert.True(t, IsFileURL(s), "url %q", s)
	}

	no := []string{
		"https://example.com/file.txt",
		"http://bucket/key",
		"ssh://host/path",
		"tcp://host/port",
		"not a url",
		"minio://",
		"minio://missing-blob",
		"ftp://bucket/key",
	}
	for _, s := range no {
		assert.False(t, IsFileURL(s), "url %q", s)
	}
}

func TestParseFileURL(t *testing.T) {
	u, err := ParseFileURL("minio://invoices/2026/inv-001.pdf")
	require.NoError(t, err)
	assert.Equal(t, "minio", u.Store)
	assert.Equal(t, "invoices", u.Container)
	assert.Equal(t, "2026/inv-001.pdf", u.Blob)
	assert.Equal(t, "minio://invoices/2026/inv-001.pdf", u.String())

	_, err = ParseFileURL("https://example.com/file.txt")
	require.ErrorIs(t, err, ErrInvalidName)
}
