package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"youthportal/api/internal/config"
)

// ObjectStore holds admin uploads that have not been attached to content yet.
// The service only needs to list and expire them.
type ObjectStore struct {
	client *minio.Client
	bucket string
	region string
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		bucket: cfg.BucketTemp,
		region: cfg.Region,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// CleanupTemp removes objects under prefix last modified before cutoff and
// reports how many were deleted.
func (s *ObjectStore) CleanupTemp(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	var stale []minio.ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, obj.Err)
		}
		if obj.LastModified.Before(cutoff) {
			stale = append(stale, obj)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	queue := make(chan minio.ObjectInfo, len(stale))
	for _, obj := range stale {
		queue <- obj
	}
	close(queue)

	failed := 0
	var firstErr error
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, queue, minio.RemoveObjectsOptions{}) {
		failed++
		if firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return len(stale) - failed, firstErr
}
