package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/anand870/cloudstorage"
	"github.com/anand870/cloudstorage/transfer"
)

// metaDirName is the per-container directory holding metadata sidecars.
// Blob names may not start with this segment.
const metaDirName = ".meta"

// uploadPrefix names in-flight staging files in the container root. They
// are invisible to listings and reserved from blob names, so a crashed
// upload's leftover never surfaces as a phantom blob.
const uploadPrefix = ".upload-"

// Driver implements cloudstorage.Driver on a local directory tree.
type Driver struct {
	root    string
	engine  *transfer.Engine
	logger  *cloudstorage.Logger
	metrics cloudstorage.MetricsCollector
}

// Option configures the driver.
type Option func(*Driver)

// WithEngine replaces the default transfer engine.
func WithEngine(e *transfer.Engine) Option {
	return func(d *Driver) {
		if e != nil {
			d.engine = e
		}
	}
}

// WithLogger routes the driver's logging.
func WithLogger(l *cloudstorage.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics installs a metrics collector.
func WithMetrics(m cloudstorage.MetricsCollector) Option {
	return func(d *Driver) {
		if m != nil {
			d.metrics = m
		}
	}
}

// New returns a driver rooted at root, creating the directory if needed.
// Filesystem permissions are assumed to be provisioned externally.
func New(root string, opts ...Option) (*Driver, error) {
	if root == "" {
		return nil, fmt.Errorf("local: root directory required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}

	d := &Driver{
		root:    abs,
		engine:  transfer.New(),
		logger:  cloudstorage.NoopLogger(),
		metrics: cloudstorage.NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Kind reports cloudstorage.KindLocal.
func (d *Driver) Kind() cloudstorage.Kind { return cloudstorage.KindLocal }

// Close releases the driver. The local backend holds no session state
// beyond the root path, so this is a no-op.
func (d *Driver) Close() error { return nil }

// validateContainerName enforces the local naming rules: a single path
// segment that cannot escape the root or shadow hidden bookkeeping.
func validateContainerName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: container name is empty", cloudstorage.ErrInvalidName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: container name %q contains a path separator", cloudstorage.ErrInvalidName, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: container name %q is a relative path", cloudstorage.ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: container name %q starts with a dot", cloudstorage.ErrInvalidName, name)
	case len(name) > 255:
		return fmt.Errorf("%w: container name %q is too long", cloudstorage.ErrInvalidName, name)
	}
	return nil
}

func (d *Driver) containerDir(name string) (string, error) {
	if err := validateContainerName(name); err != nil {
		return "", err
	}
	return filepath.Join(d.root, name), nil
}

// CreateContainer creates the container's directory.
func (d *Driver) CreateContainer(ctx context.Context, name string) (*cloudstorage.Container, error) {
	dir, err := d.containerDir(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: container %q", cloudstorage.ErrAlreadyExists, name)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: container %q", cloudstorage.ErrAlreadyExists, name)
		}
		return nil, err
	}

	d.logger.WithContainer(name).Debug("container created")
	return d.containerEntity(name, dir)
}

// Container looks up an existing container directory.
func (d *Driver) Container(ctx context.Context, name string) (*cloudstorage.Container, error) {
	dir, err := d.containerDir(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fi, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: container %q", cloudstorage.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: container %q", cloudstorage.ErrNotFound, name)
	}

	return cloudstorage.NewContainer(d, cloudstorage.Container{
		Name:      name,
		CreatedAt: fi.ModTime().UTC(),
	}), nil
}

// Containers enumerates container directories in lexicographic order. Each
// range over the sequence re-reads the root directory.
func (d *Driver) Containers(ctx context.Context) iter.Seq2[*cloudstorage.Container, error] {
	return func(yield func(*cloudstorage.Container, error) bool) {
		entries, err := os.ReadDir(d.root) // sorted by name
		if err != nil {
			yield(nil, err)
			return
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			c, err := d.containerEntity(entry.Name(), filepath.Join(d.root, entry.Name()))
			if !yield(c, err) || err != nil {
				return
			}
		}
	}
}

// DeleteContainer removes a container directory. Without force the
// container must hold no blobs; metadata leftovers alone count as empty.
func (d *Driver) DeleteContainer(ctx context.Context, name string, force bool) error {
	dir, err := d.containerDir(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: container %q", cloudstorage.ErrNotFound, name)
	} else if err != nil {
		return err
	}

	if !force {
		empty, err := d.containerEmpty(dir)
		if err != nil {
			return err
		}
		if !empty {
			return fmt.Errorf("%w: container %q", cloudstorage.ErrNotEmpty, name)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	d.logger.WithContainer(name).Debug("container deleted", "force", force)
	return nil
}

func (d *Driver) containerEntity(name, dir string) (*cloudstorage.Container, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	return cloudstorage.NewContainer(d, cloudstorage.Container{
		Name:      name,
		CreatedAt: fi.ModTime().UTC(),
	}), nil
}

// containerEmpty reports whether dir holds any blob data file, ignoring the
// sidecar tree.
func (d *Driver) containerEmpty(dir string) (bool, error) {
	empty := true
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == metaDirName && filepath.Dir(path) == dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), uploadPrefix) && filepath.Dir(path) == dir {
			return nil
		}
		empty = false
		return filepath.SkipAll
	})
	return empty, err
}
