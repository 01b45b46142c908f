package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
)

// GCSObjectRepository implements ObjectRepository for Google Cloud Storage
type GCSObjectRepository struct {
	client     *storage.Client
	bucketName string
}

// NewGCSObjectRepository creates a new GCS object repository
func NewGCSObjectRepository(client *storage.Client, bucketName string) GCSObjectRepository {
	return GCSObjectRepository{
		client:     client,
		bucketName: bucketName,
	}
}

// Exists reports whether the key names a concrete object in the bucket.
func (r *GCSObjectRepository) Exists(ctx context.Context, key string) (bool, error) {
	obj := r.client.Bucket(r.bucketName).Object(key)
	_, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat gs://%s/%s: %w", r.bucketName, key, err)
	}
	return true, nil
}

// Size returns the object size in bytes.
func (r *GCSObjectRepository) Size(ctx context.Context, key string) (int64, error) {
	obj := r.client.Bucket(r.bucketName).Object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to stat gs://%s/%s: %w", r.bucketName, key, err)
	}
	return attrs.Size, nil
}

// ListKeys returns all keys under the prefix in listing order.
func (r *GCSObjectRepository) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	bucket := r.client.Bucket(r.bucketName)

	var keys []string
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

// Get downloads the complete object into memory.
func (r *GCSObjectRepository) Get(ctx context.Context, key string) ([]byte, error) {
	obj := r.client.Bucket(r.bucketName).Object(key)

	log.Debugf("Reading from GCS: gs://%s/%s", r.bucketName, key)

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}
	return data, nil
}

// GetBucketName returns the bucket name
func (r *GCSObjectRepository) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the storage type
func (r *GCSObjectRepository) GetStorageType() string {
	return "gcs"
}
