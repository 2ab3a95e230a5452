package local

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// sidecar is the JSON document persisted next to each blob, under the
// container's ".meta" directory. It round-trips the attributes the
// filesystem itself cannot carry.
type sidecar struct {
	Size        int64             `json:"size"`
	ContentType string            `json:"content_type,omitempty"`
	Checksum    string            `json:"checksum"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ModifiedAt  time.Time         `json:"modified_at"`
}

// sidecarPath mirrors the blob's relative path under the meta directory,
// with a .json suffix: <container>/.meta/<blob>.json.
func sidecarPath(containerDir, blobName string) string {
	return filepath.Join(containerDir, metaDirName, filepath.FromSlash(blobName)+".json")
}

func writeSidecar(path string, sc sidecar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readSidecar(path string) (sidecar, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return sidecar{}, err
	}
	var sc sidecar
	if err := json.Unmarshal(b, &sc); err != nil {
		return sidecar{}, err
	}
	return sc, nil
}
