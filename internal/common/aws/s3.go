// internal/common/aws/s3.go
package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Client struct {
	client *s3.Client
}

func NewS3Client(ctx context.Context, region string) (*S3Client, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewS3ClientFromConfig(cfg), nil
}

// NewS3ClientFromConfig allows an endpoint override (MinIO, localstack).
func NewS3ClientFromConfig(cfg awssdk.Config, optFns ...func(*s3.Options)) *S3Client {
	return &S3Client{client: s3.NewFromConfig(cfg, optFns...)}
}

func (s *S3Client) PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return s.client.PutObject(ctx, input, optFns...)
}
