package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
)

// S3RecordStore implements store.RecordStore using Amazon S3 or S3-compatible
// storage.
//
// Key Design:
//   - One JSON object per handle, keyed by the handle name
//   - Format: keyPrefix + "prefix/suffix" (e.g. "records/21.T12345/abc")
//   - Objects hold the same JSON a handle server returns ({"handle", "values"})
//
// Thread Safety:
// Writes from one process are serialized by a mutex so read-modify-write
// cycles do not interleave. Writers in different processes are last-write-wins.
type S3RecordStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	mu  sync.Mutex
	now func() time.Time
}

// S3RecordStoreConfig contains configuration for the S3 record store.
type S3RecordStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "handles/" results in keys like "handles/21.T1/abc"
	KeyPrefix string
}

// NewS3RecordStore creates a new S3-based record store.
//
// The bucket must already exist; this function verifies access to it.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3RecordStore: Initialized store
//   - error: Returns error if bucket access fails or context is cancelled
func NewS3RecordStore(ctx context.Context, cfg S3RecordStoreConfig) (*S3RecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3RecordStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		now:       time.Now,
	}, nil
}

func (s *S3RecordStore) objectKey(name string) string {
	return s.keyPrefix + name
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// get loads a record. Returns nil when the object does not exist.
func (s *S3RecordStore) get(ctx context.Context, name string) (*handle.Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	var rec handle.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", name, err)
	}
	rec.Handle = name
	if rec.Values == nil {
		rec.Values = []handle.Entry{}
	}
	return &rec, nil
}

func (s *S3RecordStore) put(ctx context.Context, rec *handle.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.Handle, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(rec.Handle)),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// exists checks for the object with HeadObject.
func (s *S3RecordStore) exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}
	return true, nil
}

// Fetch implements store.RecordStore.
func (s *S3RecordStore) Fetch(ctx context.Context, name string) (*handle.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, handle.NewNotFoundError(name, "")
	}
	return rec, nil
}

// Write implements store.RecordStore.
func (s *S3RecordStore) Write(ctx context.Context, req store.WriteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.get(ctx, req.Handle)
	if err != nil {
		return err
	}
	rec, err := store.ApplyWrite(existing, req, s.now())
	if err != nil {
		return err
	}
	return s.put(ctx, rec)
}

// Delete implements store.RecordStore.
func (s *S3RecordStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return handle.NewNotFoundError(name, "")
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// DeleteIndices implements store.RecordStore.
func (s *S3RecordStore) DeleteIndices(ctx context.Context, name string, indices []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(ctx, name)
	if err != nil {
		return err
	}
	if rec == nil {
		return handle.NewNotFoundError(name, "")
	}
	if len(indices) == 0 {
		return nil
	}
	return s.put(ctx, store.RemoveIndices(rec, indices))
}

// ListHandles implements store.Lister.
func (s *S3RecordStore) ListHandles(ctx context.Context, prefix string) ([]string, error) {
	listPrefix := s.keyPrefix
	if prefix != "" {
		listPrefix += prefix + "/"
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(listPrefix),
	})

	names := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			names = append(names, strings.TrimPrefix(*obj.Key, s.keyPrefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Search implements store.Searcher by fetching every record under the prefix.
func (s *S3RecordStore) Search(ctx context.Context, query store.SearchQuery) ([]string, error) {
	candidates, err := s.ListHandles(ctx, query.Prefix)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, name := range candidates {
		rec, err := s.get(ctx, name)
		if err != nil {
			return nil, err
		}
		if rec != nil && store.Matches(rec, query) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Close implements store.RecordStore. The S3 client holds no resources to release.
func (s *S3RecordStore) Close() error {
	return nil
}
