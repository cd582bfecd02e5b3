// internal/export/s3.go
package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/models"
)

// ObjectPutter is satisfied by aws.S3Client and *s3.Client.
type ObjectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads the CSV rendering of a run to <prefix>/<run-id>.csv.
type S3Sink struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewS3Sink(client ObjectPutter, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Sink) Name() string { return "s3" }

// Key returns the object key for a run.
func (s *S3Sink) Key(runID string) string {
	return path.Join(s.prefix, runID+".csv")
}

func (s *S3Sink) Write(ctx context.Context, runID string, records []models.BusinessRecord) error {
	var buf bytes.Buffer
	if err := RenderCSV(&buf, records); err != nil {
		return errors.NewSinkWriteFailedError(s.Name(), err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(s.bucket),
		Key:         awssdk.String(s.Key(runID)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: awssdk.String("text/csv"),
		Metadata:    map[string]string{"run-id": runID, "records": fmt.Sprint(len(records))},
	})
	if err != nil {
		return errors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.Key(runID), err))
	}
	return nil
}
