package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wision-lab/datasets/internal/logging"
	"github.com/wision-lab/datasets/internal/metrics"
)

// S3Config describes how to reach a bucket. Empty credentials select
// anonymous access, the norm for public dataset buckets.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// S3Store is a read-only Store over a single S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3 builds an S3-backed store. A non-empty endpoint overrides the
// AWS default, which is how university and MinIO deployments are
// reached.
func NewS3(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("store: bucket is required")
	}

	var provider aws.CredentialsProvider = aws.AnonymousCredentials{}
	if cfg.AccessKey != "" {
		provider = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(provider),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Bucket returns the bucket name this store reads from.
func (s *S3Store) Bucket() string { return s.bucket }

// List walks the paginated bucket listing under prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	start := time.Now()

	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			metrics.RecordS3Operation("list_objects", time.Since(start), false)
			return nil, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	metrics.RecordS3Operation("list_objects", time.Since(start), true)
	logging.Debug("S3 list objects",
		logging.String("bucket", s.bucket),
		logging.String("prefix", prefix),
		logging.Int("count", len(objects)),
	)
	return objects, nil
}

// Get opens one object. Missing keys come back wrapping ErrNotFound.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	start := time.Now()

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.RecordS3Operation("get_object", time.Since(start), false)
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, 0, fmt.Errorf("get object %s: %w", key, ErrNotFound)
		}
		return nil, 0, fmt.Errorf("get object %s: %w", key, err)
	}

	metrics.RecordS3Operation("get_object", time.Since(start), true)
	return result.Body, aws.ToInt64(result.ContentLength), nil
}
