package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures the S3-compatible backend. BaseEndpoint supports
// MinIO and other S3-compatible stores.
type S3Options struct {
	Region       string
	Bucket       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	// PublicEndpoint is the endpoint used in canonical URLs; falls back to
	// BaseEndpoint when empty.
	PublicEndpoint string
}

// S3Store implements Store on an S3-compatible bucket. The bucket is the
// container.
type S3Store struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3Store builds the S3 client and binds it to the bucket.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey, opts.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	endpoint := opts.PublicEndpoint
	if endpoint == "" {
		endpoint = opts.BaseEndpoint
	}

	return &S3Store{
		client:   client,
		bucket:   opts.Bucket,
		endpoint: strings.TrimRight(endpoint, "/"),
	}, nil
}

// Put uploads the object. S3 PutObject overwrites by default, which matches
// the idempotent upload contract.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.URL(key), nil
}

// Get downloads the object bytes.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the object. S3 delete is a no-op for missing keys.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// List enumerates every key in the bucket, following pagination.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// Exists checks presence with a HEAD request.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	return true, nil
}

// URL returns the canonical URL for a key.
func (s *S3Store) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
}

// Container returns the bucket name.
func (s *S3Store) Container() string {
	return s.bucket
}

var _ Store = (*S3Store)(nil)
