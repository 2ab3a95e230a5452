package amazon

import (
	"context"
	"iter"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/anand870/cloudstorage"
	"github.com/anand870/cloudstorage/transfer"
)

// deleteConcurrency bounds concurrent object deletes in a force delete.
const deleteConcurrency = 8

// Client is the subset of the S3 API the driver consumes. *s3.Client
// satisfies it; tests substitute a mock.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// Config holds explicit connection parameters. Empty credential fields fall
// back to the SDK's default chain (environment, shared config, IMDS).
type Config struct {
	// Region defaults to us-east-1.
	Region string
	// Endpoint optionally targets an S3-compatible gateway.
	Endpoint string
	// AccessKey and SecretKey are optional static credentials.
	AccessKey string
	SecretKey string
	// SessionToken accompanies temporary credentials.
	SessionToken string
	// PathStyle forces path-style addressing (required by most gateways).
	PathStyle bool
}

// Driver implements cloudstorage.Driver on Amazon S3.
type Driver struct {
	client  Client
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

// New builds an S3 client from cfg and wraps it in a driver.
func New(ctx context.Context, cfg Config, opts ...Option) (*Driver, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, region, opts...), nil
}

// NewWithClient wraps an existing client. Useful for tests and callers with
// bespoke SDK configuration.
func NewWithClient(client Client, region string, opts ...Option) *Driver {
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

// Kind reports cloudstorage.KindS3.
func (d *Driver) Kind() cloudstorage.Kind { return cloudstorage.KindS3 }

// Close releases the driver. The SDK's HTTP client manages its own
// connection pool; nothing to tear down.
func (d *Driver) Close() error { return nil }

// CreateContainer creates a bucket, validating the name against the strict
// bucket naming rules first.
func (d *Driver) CreateContainer(ctx context.Context, name string) (*cloudstorage.Container, error) {
	if err := cloudstorage.ValidateContainerName(name, true); err != nil {
		return nil, err
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 is the one region the API refuses as an explicit location
	// constraint.
	if d.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(d.region),
		}
	}
	if _, err := d.client.CreateBucket(ctx, input); err != nil {
		return nil, translateErr(err)
	}

	d.logger.WithContainer(name).Debug("container created")
	return cloudstorage.NewContainer(d, cloudstorage.Container{Name: name}), nil
}

// Container verifies the bucket exists.
func (d *Driver) Container(ctx context.Context, name string) (*cloudstorage.Container, error) {
	if _, err := d.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)}); err != nil {
		return nil, translateErr(err)
	}
	return cloudstorage.NewContainer(d, cloudstorage.Container{Name: name}), nil
}

// Containers lists buckets in lexicographic name order. Each range over the
// sequence re-queries the backend.
func (d *Driver) Containers(ctx context.Context) iter.Seq2[*cloudstorage.Container, error] {
	return func(yield func(*cloudstorage.Container, error) bool) {
		out, err := d.client.ListBuckets(ctx, &s3.ListBucketsInput{})
		if err != nil {
			yield(nil, translateErr(err))
			return
		}
		buckets := out.Buckets
		sort.Slice(buckets, func(i, j int) bool {
			return aws.ToString(buckets[i].Name) < aws.ToString(buckets[j].Name)
		})
		for _, b := range buckets {
			c := cloudstorage.NewContainer(d, cloudstorage.Container{
				Name:      aws.ToString(b.Name),
				CreatedAt: aws.ToTime(b.CreationDate).UTC(),
			})
			if !yield(c, nil) {
				return
			}
		}
	}
}

// DeleteContainer removes a bucket, emptying it first when force is set.
func (d *Driver) DeleteContainer(ctx context.Context, name string, force bool) error {
	if _, err := d.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)}); err != nil {
		return translateErr(err)
	}

	if force {
		if err := d.emptyBucket(ctx, name); err != nil {
			return err
		}
	}

	if _, err := d.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
		return translateErr(err)
	}

	d.logger.WithContainer(name).Debug("container deleted", "force", force)
	return nil
}

func (d *Driver) emptyBucket(ctx context.Context, name string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)

	var listErr error
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(name),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(gctx)
		if err != nil {
			listErr = translateErr(err)
			break
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			g.Go(func() error {
				_, err := d.client.DeleteObject(gctx, &s3.DeleteObjectInput{
					Bucket: aws.String(name),
					Key:    aws.String(key),
				})
				if err != nil {
					return translateErr(err)
				}
				return nil
			})
		}
	}
	// A failed delete cancels gctx and the pagination then errors with the
	// cancellation; the delete's error is the cause, so it wins.
	if err := g.Wait(); err != nil {
		return err
	}
	return listErr
}
