package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3 stores shared-link payloads in an S3 bucket.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 loads the AWS configuration from the environment and targets bucket.
func NewS3(ctx context.Context, bucket string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// NewS3WithClient injects a prebuilt client. Used by tests.
func NewS3WithClient(client *s3.Client, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Upload implements Store. Objects are keyed by a fresh UUID so concurrent
// requests for the same video never collide.
func (s *S3) Upload(ctx context.Context, name string, data []byte) (Object, error) {
	key := uuid.NewString() + "/" + name

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload to s3: %w", err)
	}

	return Object{
		ID:  key,
		URL: fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key),
	}, nil
}

// RestrictVisibility implements Store by tagging the object with its grantee.
// Access enforcement is delegated to bucket policy matching the tag.
func (s *S3) RestrictVisibility(ctx context.Context, objectID, granteeEmail string) error {
	_, err := s.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectID),
		Tagging: &s3types.Tagging{
			TagSet: []s3types.Tag{
				{Key: aws.String("grantee"), Value: aws.String(granteeEmail)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("restrict visibility on %s: %w", objectID, err)
	}
	return nil
}
