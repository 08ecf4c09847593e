package s3client

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// NewInMemory creates a Client backed by an in-memory gofakes3 server.
// Used when the server runs with --no-s3 so published notes still get real
// URLs during local development. The returned shutdown func stops the
// backing HTTP server.
func NewInMemory(ctx context.Context, bucketName string) (*Client, func(), error) {
	backend := s3mem.New()
	faker := gofakes3.New(backend)
	ts := httptest.NewServer(faker.Server())

	sdkConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local-key", "local-secret", ""),
		),
	)
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(ts.URL)
		o.UsePathStyle = true // Required for gofakes3
	})

	if _, err := s3Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}); err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return NewFromS3Client(s3Client, bucketName, ts.URL+"/"+bucketName), ts.Close, nil
}

// TestClient creates an S3 client backed by gofakes3 for testing.
// The backing server is cleaned up when the test completes.
func TestClient(t testing.TB, bucketName string) *Client {
	t.Helper()

	client, shutdown, err := NewInMemory(context.Background(), bucketName)
	if err != nil {
		t.Fatalf("failed to start in-memory S3: %v", err)
	}
	t.Cleanup(shutdown)
	return client
}
