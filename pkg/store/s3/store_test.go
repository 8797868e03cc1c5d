package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittohandle/pkg/store"
	storetesting "github.com/marmos91/dittohandle/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to the S3-compatible service named by
// DITTOHANDLE_S3_ENDPOINT (e.g. Localstack on http://localhost:4566).
// Tests are skipped when the variable is unset.
func newTestClient(t *testing.T) *s3.Client {
	t.Helper()

	endpoint := os.Getenv("DITTOHANDLE_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("DITTOHANDLE_S3_ENDPOINT not set")
	}

	cfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
}

func TestS3RecordStore_Integration(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	bucket := fmt.Sprintf("dittohandle-test-%d", time.Now().UnixNano())
	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	n := 0
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.RecordStore {
			n++
			s, err := NewS3RecordStore(ctx, S3RecordStoreConfig{
				Client:    client,
				Bucket:    bucket,
				KeyPrefix: fmt.Sprintf("run-%d/", n),
			})
			require.NoError(t, err)
			return s
		},
	}
	suite.Run(t)
}

func TestNewS3RecordStore_Validation(t *testing.T) {
	_, err := NewS3RecordStore(context.Background(), S3RecordStoreConfig{Bucket: "b"})
	assert.Error(t, err)

	_, err = NewS3RecordStore(context.Background(), S3RecordStoreConfig{Client: &s3.Client{}})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewS3RecordStore(ctx, S3RecordStoreConfig{Client: &s3.Client{}, Bucket: "b"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestObjectKey(t *testing.T) {
	s := &S3RecordStore{keyPrefix: "handles/"}
	assert.Equal(t, "handles/21.T1/abc", s.objectKey("21.T1/abc"))
}
