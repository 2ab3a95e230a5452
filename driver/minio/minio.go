package minio

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/anand870/cloudstorage"
	"github.com/anand870/cloudstorage/transfer"
)

// deleteConcurrency bounds concurrent object deletes in a force delete.
const deleteConcurrency = 8

// Config holds the connection parameters for an S3-compatible endpoint.
// All of them are supplied by an external configuration collaborator.
type Config struct {
	// Endpoint is the host:port of the object store.
	Endpoint string
	// AccessKey and SecretKey are the static credentials.
	AccessKey string
	SecretKey string
	// Region defaults to us-east-1.
	Region string
	// Secure enables TLS.
	Secure bool
}

// Driver implements cloudstorage.Driver on an S3-compatible object store.
type Driver struct {
	client  *minio.Client
	region  string
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

// New connects a driver to the configured endpoint. The client pools HTTP
// connections; one driver per endpoint and credential set is the intended
// shape, and independent drivers do not interfere.
func New(cfg Config, opts ...Option) (*Driver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio: endpoint required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: region,
	})
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, region, opts...), nil
}

// NewWithClient wraps an existing minio client. Useful for tests and for
// callers that need custom transport settings.
func NewWithClient(client *minio.Client, region string, opts ...Option) *Driver {
	d := &Driver{
		client:  client,
		region:  region,
		engine:  transfer.New(),
		logger:  cloudstorage.NoopLogger(),
		metrics: cloudstorage.NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Kind reports cloudstorage.KindMinio.
func (d *Driver) Kind() cloudstorage.Kind { return cloudstorage.KindMinio }

// Close releases the driver. The underlying HTTP client needs no explicit
// teardown; idle connections age out on their own.
func (d *Driver) Close() error { return nil }

// CreateContainer makes a bucket, enforcing the strict DNS-style bucket
// naming rules up front so the error is uniform across endpoints.
func (d *Driver) CreateContainer(ctx context.Context, name string) (*cloudstorage.Container, error) {
	if err := cloudstorage.ValidateContainerName(name, true); err != nil {
		return nil, err
	}

	exists, err := d.client.BucketExists(ctx, name)
	if err != nil {
		return nil, translateErr(err)
	}
	if exists {
		return nil, fmt.Errorf("%w: container %q", cloudstorage.ErrAlreadyExists, name)
	}

	if err := d.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: d.region}); err != nil {
		return nil, translateErr(err)
	}

	d.logger.WithContainer(name).Debug("container created")
	return cloudstorage.NewContainer(d, cloudstorage.Container{Name: name}), nil
}

// Container verifies the bucket exists. The backend does not report a
// creation date on a head call; Containers carries it.
func (d *Driver) Container(ctx context.Context, name string) (*cloudstorage.Container, error) {
	exists, err := d.client.BucketExists(ctx, name)
	if err != nil {
		return nil, translateErr(err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: container %q", cloudstorage.ErrNotFound, name)
	}
	return cloudstorage.NewContainer(d, cloudstorage.Container{Name: name}), nil
}

// Containers lists buckets in lexicographic name order. Each range over the
// sequence re-queries the backend.
func (d *Driver) Containers(ctx context.Context) iter.Seq2[*cloudstorage.Container, error] {
	return func(yield func(*cloudstorage.Container, error) bool) {
		buckets, err := d.client.ListBuckets(ctx)
		if err != nil {
			yield(nil, translateErr(err))
			return
		}
		sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
		for _, b := range buckets {
			c := cloudstorage.NewContainer(d, cloudstorage.Container{
				Name:      b.Name,
				CreatedAt: b.CreationDate.UTC(),
			})
			if !yield(c, nil) {
				return
			}
		}
	}
}

// DeleteContainer removes a bucket. With force, contained objects are
// deleted concurrently first; without it the backend's BucketNotEmpty
// rejection surfaces as ErrNotEmpty.
func (d *Driver) DeleteContainer(ctx context.Context, name string, force bool) error {
	exists, err := d.client.BucketExists(ctx, name)
	if err != nil {
		return translateErr(err)
	}
	if !exists {
		return fmt.Errorf("%w: container %q", cloudstorage.ErrNotFound, name)
	}

	if force {
		if err := d.emptyBucket(ctx, name); err != nil {
			return err
		}
	}

	if err := d.client.RemoveBucket(ctx, name); err != nil {
		return translateErr(err)
	}

	d.logger.WithContainer(name).Debug("container deleted", "force", force)
	return nil
}

func (d *Driver) emptyBucket(ctx context.Context, name string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)

	var listErr error
	for obj := range d.client.ListObjects(gctx, name, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			listErr = translateErr(obj.Err)
			break
		}
		key := obj.Key
		g.Go(func() error {
			if err := d.client.RemoveObject(gctx, name, key, minio.RemoveObjectOptions{}); err != nil {
				return translateErr(err)
			}
			return nil
		})
	}
	// A failed delete cancels gctx and the listing then errors with the
	// cancellation; the delete's error is the cause, so it wins.
	if err := g.Wait(); err != nil {
		return err
	}
	return listErr
}
