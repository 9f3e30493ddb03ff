package transfer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"aircheck/internal/config"
	"aircheck/internal/services"
)

// s3API is the subset of the S3 client the backend uses, extracted so tests
// can substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3 uploads to object storage via the AWS SDK.
type S3 struct {
	client s3API
	bucket string
	prefix string
}

// NewS3 constructs the s3 backend, resolving credentials from the standard
// AWS environment and config chain.
func NewS3(cfg config.Transfer) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		prefix: strings.Trim(cfg.S3Prefix, "/"),
	}, nil
}

// Name identifies the backend.
func (s *S3) Name() string { return "s3" }

// key maps a remote path to an object key under the configured prefix.
func (s *S3) key(remotePath string) string {
	trimmed := strings.TrimLeft(remotePath, "/")
	if s.prefix == "" {
		return trimmed
	}
	return s.prefix + "/" + trimmed
}

// Upload streams the local file into the bucket.
func (s *S3) Upload(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transferring", "open", "open local file", err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(remotePath)),
		Body:        f,
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transferring", "put",
			fmt.Sprintf("put s3://%s/%s", s.bucket, s.key(remotePath)), err)
	}
	return nil
}

// Verify heads the object and compares content length.
func (s *S3) Verify(ctx context.Context, remotePath string, size int64) error {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(remotePath)),
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transferring", "verify",
			fmt.Sprintf("head s3://%s/%s", s.bucket, s.key(remotePath)), err)
	}
	if out.ContentLength == nil || *out.ContentLength != size {
		var got int64 = -1
		if out.ContentLength != nil {
			got = *out.ContentLength
		}
		return services.Wrap(services.ErrExternalTool, "transferring", "verify",
			fmt.Sprintf("size mismatch: local %d, remote %d", size, got), nil)
	}
	return nil
}

// Ready checks bucket reachability.
func (s *S3) Ready(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s: %w", s.bucket, err)
	}
	return nil
}

var _ Service = (*S3)(nil)
