package reports

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3SinkConfig holds configuration for the S3 report sink.
type S3SinkConfig struct {
	Bucket   string
	Region   string
	Endpoint string // Optional: for S3-compatible stores such as MinIO
	Prefix   string
}

type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads reports to an S3 bucket.
type S3Sink struct {
	client s3Putter
	bucket string
	prefix string
}

// NewS3Sink creates an S3 sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, cfg S3SinkConfig) (*S3Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Sink(client, cfg), nil
}

func newS3Sink(client s3Putter, cfg S3SinkConfig) *S3Sink {
	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: prefix}
}

func (s *S3Sink) Save(ctx context.Context, name string, content []byte) (string, error) {
	key := s.prefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report to s3://%s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
