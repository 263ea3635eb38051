package utils

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobStore wraps the S3 client for image storage. Uploaded objects are
// addressed by a stable public URL; presigned URLs are available for buckets
// without public read.
type BlobStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	region  string
}

// NewBlobStore builds the S3 client from the default credential chain.
func NewBlobStore(ctx context.Context, region, bucket string) (*BlobStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &BlobStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		region:  region,
	}, nil
}

// Upload writes the object and returns its publicly resolvable URL.
func (b *BlobStore) Upload(ctx context.Context, body io.Reader, objectKey, contentType string) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", objectKey, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.region, objectKey), nil
}

// PresignURL generates a time-limited GET URL for an object key. Inputs that
// are already URLs are returned unchanged.
func (b *BlobStore) PresignURL(ctx context.Context, objectKey string) (string, error) {
	if strings.HasPrefix(objectKey, "http") {
		return objectKey, nil
	}

	request, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(1*time.Hour))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", objectKey, err)
	}

	return request.URL, nil
}
